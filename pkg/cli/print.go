package cli

import (
	"fmt"

	"github.com/mitchellh/colorstring"
)

func printTask(format string, args ...interface{}) {
	colorstring.Printf("[blue][bold]==>[default] %s\n", fmt.Sprintf(format, args...))
}

func printSubtask(format string, args ...interface{}) {
	colorstring.Printf("[green][bold]  ->[reset] %s\n", fmt.Sprintf(format, args...))
}

// Command lmsctl runs administrative tasks against the LMS database without
// going through the HTTP API.
package main

import (
	"fmt"
	"os"

	"github.com/upskeel/lms/pkg/logger"
)

func main() {
	defer logger.Sync() // best effort

	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

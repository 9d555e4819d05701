// Hatobactl is the offline companion of the Hatoba gateway: it normalises
// payload files through the same pipeline and validates config documents.
package main

import (
	"os"

	"github.com/bdobrica/Hatoba/cmd/hatobactl/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

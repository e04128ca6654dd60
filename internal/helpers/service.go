package helpers

import (
	"fmt"
	"os"
)

// GetHostName returns the node name stamped on published events as
// serverNode. A gateway node that cannot name itself cannot tag its events,
// so this is fatal.
func GetHostName() string {
	name, err := os.Hostname()
	if err != nil {
		fmt.Fprintln(os.Stderr, "unable to resolve hostname:", err)
		os.Exit(1)
	}
	return name
}

// Command sigwatch validates content signatures of remote collections,
// checks the changes registry for consistency, and drives the signing
// lifecycle.
package main

import "os"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

package util

import (
	"fmt"
	"os"
)

// Eprintln prints to stderr
func Eprintln(a ...interface{}) {
	fmt.Fprintln(os.Stderr, a...)
}

// Fatalln prints to stderr and exits with status 1
func Fatalln(a ...interface{}) {
	Eprintln(a...)
	os.Exit(1)
}

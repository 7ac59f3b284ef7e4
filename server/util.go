package main

import (
	"fmt"
	"os"
)

func Eprintln(a ...interface{}) {
	fmt.Fprintln(os.Stderr, a...)
}

func Eprintf(format string, a ...interface{}) {
	fmt.Fprintf(os.Stderr, format, a...)
}

func Fatalln(a ...interface{}) {
	Eprintln(a...)
	os.Exit(1)
}

package main

import (
	"log"

	"github.com/resumecheck/resumecheck/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		log.Fatal(err)
	}
}

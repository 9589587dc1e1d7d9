package linepipes

import (
	"bufio"
	"fmt"
	"log"
	"os"
	"os/exec"
	"strings"
)

// global flag controlling debug output
var Verbose = false

// Run starts prog and streams its combined output line by line. The
// errors channel carries at most the exit error and is closed when the
// process finishes.
func Run(prog string, args ...string) (lines chan string, errors chan error) {
	lines = make(chan string)
	errors = make(chan error, 1)
	if Verbose {
		log.Println("Executing:", prog, strings.Join(args, " "))
	}
	cmd := exec.Command(prog, args...)
	cmd.Stdin = os.Stdin
	pipeReader, pipeWriter, err := os.Pipe()
	if err != nil {
		errors <- err
		close(lines)
		close(errors)
		return lines, errors
	}
	cmd.Stdout = pipeWriter
	cmd.Stderr = pipeWriter
	if err := cmd.Start(); err != nil {
		errors <- err
		close(lines)
		close(errors)
		return lines, errors
	}
	go func() {
		defer close(lines)
		s := bufio.NewScanner(pipeReader)
		for s.Scan() {
			lines <- s.Text()
		}
	}()
	go func() {
		defer close(errors)
		if err := cmd.Wait(); err != nil {
			errors <- err
		}
		pipeWriter.Close()
	}()
	return lines, errors
}

// Single drains the output and returns it, failing unless it was exactly
// one line.
func Single(lines <-chan string, errors <-chan error) (string, error) {
	var s string
	var count int
	for line := range lines {
		s = line
		count += 1
	}
	if err, _ := <-errors; err != nil {
		return s, err
	}
	if count != 1 {
		return s, fmt.Errorf("Expected a single line, got %d", count)
	}
	return s, nil
}

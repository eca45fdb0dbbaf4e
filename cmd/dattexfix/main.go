// Command dattexfix repairs the corrupted DXT5 texture blocks and
// over-long mipmap chains inside a DAT archive, backing up the
// original file first.
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/goopsie/dattexfix/pkg/repair"
)

const usage = "Usage: %s <dat file> [backup path] [-fN (compression level)]\n"

func main() {
	if len(os.Args) < 2 {
		fmt.Printf(usage, os.Args[0])
		return
	}

	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "ERROR - %v\n", err)
		os.Exit(1)
	}
	fmt.Println("Finished!")
}

func run(args []string) error {
	datPath, backupPath, level := parseArgs(args)

	fmt.Println("Backing up original archive.")
	if err := os.Rename(datPath, backupPath); err != nil {
		return fmt.Errorf("unable to move file, does the backup file already exist? %w", err)
	}

	in, err := os.Open(backupPath)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(datPath)
	if err != nil {
		return err
	}
	defer out.Close()

	fmt.Println("Checking for textures that may require patching:")
	_, err = repair.Run(in, out, repair.Config{CompressionLevel: level}, os.Stdout)
	return err
}

// parseArgs splits positional arguments into the dat path, the backup
// path, and an optional trailing -fN compression level flag.
// backupPath defaults to datPath+".BAK" whenever the second argument
// is absent or looks like a flag rather than a path.
func parseArgs(args []string) (datPath, backupPath string, level int) {
	datPath = args[0]
	backupPath = datPath + ".BAK"
	level = repair.DefaultCompressionLevel

	if len(args) >= 2 && !strings.HasPrefix(args[1], "-") {
		backupPath = args[1]
	}

	last := args[len(args)-1]
	if len(last) >= 3 && last[0] == '-' && last[1] == 'f' && last[2] >= '0' && last[2] <= '9' {
		level = int(last[2] - '0')
	}

	return datPath, backupPath, level
}

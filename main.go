package main

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/dynamitemc/chunkstore/logger"
)

func HasArg(arg string) bool {
	for _, s := range os.Args {
		if s == arg {
			return true
		}
	}
	return false
}

// commandLine drops the program name and any -flags. Negative numbers are
// kept as arguments.
func commandLine(args []string) []string {
	var out []string
	for _, a := range args[1:] {
		if _, err := strconv.Atoi(a); err != nil && strings.HasPrefix(a, "-") {
			continue
		}
		out = append(out, a)
	}
	return out
}

func main() {
	start := time.Now()
	log := logger.New(os.Stdout, HasArg("-debug"))

	config, err := LoadConfig(ConfigFile)
	if err != nil {
		log.Error("Failed to load %s: %v", ConfigFile, err)
		os.Exit(1)
	}
	store, err := NewStore(config, log)
	if err != nil {
		log.Error("%v", err)
		os.Exit(1)
	}
	defer store.Close()
	log.Debug("Opened %s", store.RegionDir())

	if err := store.Command(strings.Join(commandLine(os.Args), " ")); err != nil {
		log.Error("%v", err)
		store.Close()
		os.Exit(1)
	}
	log.Debug("Done! (%v)", time.Since(start).Round(time.Millisecond))
}

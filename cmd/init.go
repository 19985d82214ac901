package cmd

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"

	"github.com/nibzard/nextup/internal/config"
	"github.com/nibzard/nextup/internal/logging"
	"github.com/nibzard/nextup/internal/statedir"
	"github.com/nibzard/nextup/internal/store"
)

// initCommand creates the .nextup directory, an empty state and an
// example config in the project root. Existing files are kept unless
// -force is given.
func initCommand(ctx context.Context, std streams, cfg *config.Config, args []string) error {
	flags := flag.NewFlagSet("nextup init", flag.ContinueOnError)
	flags.SetOutput(std.err)
	force := flags.Bool("force", false, "Overwrite existing state and config")

	if err := flags.Parse(args); err != nil {
		return err
	}
	if flags.NArg() > 0 {
		return fmt.Errorf("unexpected arguments: %v", flags.Args())
	}

	dir := statedir.DirPath(cfg.ProjectRoot)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating %s: %w", dir, err)
	}
	fmt.Fprintf(std.out, "Directory: %s\n", dir)

	if *force || !exists(cfg.StateFile) {
		st, err := store.Open(cfg.Storage, cfg.StateFile, logging.Discard())
		if err != nil {
			return err
		}
		saveErr := st.Save(ctx, store.State{})
		if err := store.Close(st); err != nil && saveErr == nil {
			saveErr = err
		}
		if saveErr != nil {
			return fmt.Errorf("writing empty state: %w", saveErr)
		}
		fmt.Fprintf(std.out, "Created state: %s\n", cfg.StateFile)
	} else {
		fmt.Fprintf(std.out, "Kept existing state: %s\n", cfg.StateFile)
	}

	configPath := statedir.ConfigPath(cfg.ProjectRoot)
	if *force || !exists(configPath) {
		if err := os.WriteFile(configPath, []byte(config.ExampleConfig()), 0644); err != nil {
			return fmt.Errorf("writing %s: %w", configPath, err)
		}
		fmt.Fprintf(std.out, "Created config: %s\n", configPath)
	} else {
		fmt.Fprintf(std.out, "Kept existing config: %s\n", configPath)
	}
	return nil
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return !errors.Is(err, fs.ErrNotExist)
}

// Command packratctl is a command-line client for the backup server.
//
// Usage:
//
//	packratctl -server localhost:1256 -id 42 save ./photo.jpg
//	packratctl -server localhost:1256 -id 42 restore photo.jpg -o ./photo.jpg
//	packratctl -server localhost:1256 -id 42 delete photo.jpg
//	packratctl -server localhost:1256 -id 42 list
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/marmos91/packrat/internal/protocol/backup/wire"
	"github.com/marmos91/packrat/pkg/client"
)

func usage() {
	fmt.Fprintf(os.Stderr, "Usage: %s [flags] <save|restore|delete|list> [args]\n\n", os.Args[0])
	fmt.Fprintf(os.Stderr, "Commands:\n")
	fmt.Fprintf(os.Stderr, "  save <path> [name]    upload a file (name defaults to the base name)\n")
	fmt.Fprintf(os.Stderr, "  restore <name> [out]  download a file (out defaults to the name)\n")
	fmt.Fprintf(os.Stderr, "  delete <name>         delete a file\n")
	fmt.Fprintf(os.Stderr, "  list                  list stored files\n\n")
	fmt.Fprintf(os.Stderr, "Flags:\n")
	flag.PrintDefaults()
}

func main() {
	server := flag.String("server", "localhost:1256", "Server address (host:port)")
	clientID := flag.Uint("id", 0, "Client ID")
	timeout := flag.Duration("timeout", 30*time.Second, "Operation timeout")
	flag.Usage = usage
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		usage()
		os.Exit(2)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	c := client.New(*server, uint32(*clientID))

	var err error
	switch args[0] {
	case "save":
		err = runSave(ctx, c, args[1:])
	case "restore":
		err = runRestore(ctx, c, args[1:])
	case "delete":
		err = runDelete(ctx, c, args[1:])
	case "list":
		err = runList(ctx, c)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", args[0])
		usage()
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runSave(ctx context.Context, c *client.Client, args []string) error {
	if len(args) < 1 || len(args) > 2 {
		return fmt.Errorf("save expects <path> [name]")
	}
	path := args[0]

	name := filepath.Base(path)
	if len(args) == 2 {
		name = args[1]
	}

	payload, err := wire.ReadPayloadFile(path)
	if err != nil {
		return err
	}

	if err := c.Save(ctx, name, payload.Bytes()); err != nil {
		return err
	}
	fmt.Printf("Saved %s (%d bytes)\n", name, payload.Size())
	return nil
}

func runRestore(ctx context.Context, c *client.Client, args []string) error {
	if len(args) < 1 || len(args) > 2 {
		return fmt.Errorf("restore expects <name> [out]")
	}
	name := args[0]

	out := name
	if len(args) == 2 {
		out = args[1]
	}

	data, err := c.Restore(ctx, name)
	if err != nil {
		return err
	}

	payload, err := wire.NewPayload(data)
	if err != nil {
		return err
	}
	if err := payload.WriteFile(out); err != nil {
		return err
	}
	fmt.Printf("Restored %s to %s (%d bytes)\n", name, out, len(data))
	return nil
}

func runDelete(ctx context.Context, c *client.Client, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("delete expects <name>")
	}
	if err := c.Delete(ctx, args[0]); err != nil {
		return err
	}
	fmt.Printf("Deleted %s\n", args[0])
	return nil
}

func runList(ctx context.Context, c *client.Client) error {
	listing, err := c.List(ctx)
	if err != nil {
		return err
	}
	if len(listing.Names) == 0 {
		fmt.Println("No files stored")
		return nil
	}
	for _, name := range listing.Names {
		fmt.Println(name)
	}
	return nil
}

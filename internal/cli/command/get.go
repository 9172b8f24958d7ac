package command

import (
	"fmt"

	"github.com/urfave/cli/v2"
)

// GetCommand returns the get command.
func GetCommand() *cli.Command {
	return &cli.Command{
		Name:      "get",
		Usage:     "Resolve a key and show where its value came from",
		ArgsUsage: "KEY",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "reveal",
				Usage: "Show the value unmasked",
			},
			&cli.BoolFlag{
				Name:  "string",
				Usage: "Print only the value, unmasked",
			},
		},
		Action: runGet,
	}
}

func runGet(c *cli.Context) error {
	if c.NArg() != 1 {
		return fmt.Errorf("expected exactly one key, got %d arguments", c.NArg())
	}
	key := c.Args().First()

	kit, _, err := openKit(c, nil)
	if err != nil {
		return err
	}
	defer kit.Close()

	if c.Bool("string") {
		v, err := kit.GetString(c.Context, key)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(c.App.Writer, v)
		return err
	}

	e, err := kit.GetEntry(c.Context, key)
	if err != nil {
		return err
	}
	return render(c, entryList{newEntryView(kit, e, c.Bool("reveal"))})
}

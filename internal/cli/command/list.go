package command

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/confkit-go/pkg/parser"
)

// ListCommand returns the list command.
func ListCommand() *cli.Command {
	return &cli.Command{
		Name:      "list",
		Usage:     "Show what every loader holds for a key, in precedence order",
		ArgsUsage: "KEY",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "reveal",
				Usage: "Show raw values unmasked",
			},
		},
		Action: runList,
	}
}

func runList(c *cli.Context) error {
	if c.NArg() != 1 {
		return fmt.Errorf("expected exactly one key, got %d arguments", c.NArg())
	}
	key := c.Args().First()

	kit, _, err := openKit(c, nil)
	if err != nil {
		return err
	}
	defer kit.Close()

	format, err := kit.LogFormat(key)
	if err != nil {
		return err
	}
	if c.Bool("reveal") {
		format = parser.LogPlain
	}
	entries, err := kit.ResultEntries(c.Context, key)
	if err != nil {
		return err
	}

	var rows loaderList
	for e := range entries {
		v := loaderView{
			Loader:   e.LoaderType,
			Path:     e.Path,
			Found:    e.Found,
			Disabled: e.Disabled,
		}
		if e.Err != nil {
			v.Error = e.Err.Error()
		}
		if e.Found && format != parser.LogHidden {
			v.Value = parser.BuildLogValue(e.Value, format)
		}
		rows = append(rows, v)
	}
	return render(c, rows)
}

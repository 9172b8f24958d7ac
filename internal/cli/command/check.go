package command

import (
	"fmt"

	"github.com/urfave/cli/v2"
)

// CheckCommand returns the check command.
func CheckCommand() *cli.Command {
	return &cli.Command{
		Name:   "check",
		Usage:  "Resolve every declared key and report failures",
		Action: runCheck,
	}
}

func runCheck(c *cli.Context) error {
	kit, _, err := openKit(c, nil)
	if err != nil {
		return err
	}
	defer kit.Close()

	views := resolveAll(c.Context, kit, false)
	if err := render(c, checkList(views)); err != nil {
		return err
	}

	failed := 0
	for _, v := range views {
		if v.Error != "" {
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d keys failed to resolve", failed, len(views))
	}
	return nil
}

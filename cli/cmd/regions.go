package cmd

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	amiconfig "github.com/justapithecus/amiresolve/cli/config"
	"github.com/justapithecus/amiresolve/cli/render"
	"github.com/justapithecus/amiresolve/inventory"
)

// RegionsCommand returns the regions command.
// It lists the regions a resolve would search.
func RegionsCommand() *cli.Command {
	return &cli.Command{
		Name:   "regions",
		Usage:  "List the regions searched by resolve",
		Flags:  append(awsFlags(), outputFlags()...),
		Action: regionsAction,
	}
}

func regionsAction(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return cli.Exit(err.Error(), exitUsage)
	}

	region := resolveString(c, "region", configVal(cfg, func(c *amiconfig.Config) string { return c.Region }))
	if region == "" {
		return cli.Exit("--region is required (or set region in config)", exitUsage)
	}

	r, err := render.NewRenderer(
		resolveString(c, "output", configVal(cfg, func(c *amiconfig.Config) string { return c.Output })),
		c.Bool("no-color"),
		writerOr(c.App.Writer, os.Stdout),
	)
	if err != nil {
		return cli.Exit(err.Error(), exitUsage)
	}

	inv, err := newInventory(c.Context, inventory.Config{
		Region:   region,
		Profile:  resolveString(c, "profile", configVal(cfg, func(c *amiconfig.Config) string { return c.Profile })),
		Endpoint: resolveString(c, "endpoint", configVal(cfg, func(c *amiconfig.Config) string { return c.Endpoint })),
	})
	if err != nil {
		return cli.Exit(fmt.Sprintf("failed to create inventory: %v", err), exitResolveFailure)
	}

	regions, err := inv.ListPartitions(c.Context)
	if err != nil {
		return cli.Exit(fmt.Sprintf("failed to list regions: %v", err), exitResolveFailure)
	}
	return r.RenderRegions(regions)
}

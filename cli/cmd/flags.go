// Package cmd provides CLI commands for the amiresolve binary.
package cmd

import "github.com/urfave/cli/v2"

// Flags are built per command. urfave/cli records env state on the flag
// value, so a flag value must never be shared between commands.

// awsFlags returns the flags shared by commands that talk to EC2.
func awsFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "region",
			Aliases: []string{"r"},
			Usage:   "Home AWS region of the image (required unless set in config)",
			EnvVars: []string{"AWS_REGION"},
		},
		&cli.StringFlag{
			Name:    "profile",
			Usage:   "AWS shared config profile",
			EnvVars: []string{"AWS_PROFILE"},
		},
		&cli.StringFlag{
			Name:  "endpoint",
			Usage: "Custom EC2 endpoint URL (e.g. LocalStack)",
		},
		&cli.StringFlag{
			Name:  "config",
			Usage: "Path to amiresolve.yaml config file",
		},
	}
}

// outputFlags returns the flags that shape rendered output.
func outputFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "Output format: text, json, yaml, table",
			Value:   "text",
		},
		&cli.BoolFlag{
			Name:  "no-color",
			Usage: "Disable colored output",
		},
	}
}

func suppressLogsFlag() cli.Flag {
	return &cli.BoolFlag{
		Name:    "suppress-logs",
		Aliases: []string{"s"},
		Usage:   "Suppress logs and print only the result",
	}
}

package xenon

import (
	"bytes"
	"fmt"
	"os"

	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"

	"github.com/xenoncommunity/xenon/pkg/config"
)

const defaultConfigHeader = `# Xenon proxy configuration.
# Every key can be overridden by an environment variable with XENON_ prefix,
# nested keys are joined with underscores (e.g. XENON_API_ENABLED=true).
`

func configCommand() *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "Output default configuration file",
		Description: `Output the default configuration file to stdout or a file.
You can redirect to a file or use the --write flag:

	xenon config > config.yml
	xenon config --write              # Writes to config.yml`,
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    "write",
				Aliases: []string{"w"},
				Usage:   "Write config to a file instead of stdout",
			},
			&cli.StringFlag{
				Name:    "file",
				Aliases: []string{"f"},
				Usage:   "The file written with --write",
				Value:   "config.yml",
			},
		},
		Action: func(c *cli.Context) error {
			configBytes, err := defaultConfigYAML()
			if err != nil {
				return cli.Exit(fmt.Errorf("error encoding default config: %w", err), 1)
			}

			if c.Bool("write") {
				outputFile := c.String("file")
				if err = os.WriteFile(outputFile, configBytes, 0644); err != nil {
					return cli.Exit(fmt.Errorf("error writing config to %q: %w", outputFile, err), 1)
				}
				_, _ = fmt.Fprintf(c.App.Writer, "Configuration written to %s\n", outputFile)
				return nil
			}

			if _, err = c.App.Writer.Write(configBytes); err != nil {
				return cli.Exit(fmt.Errorf("error writing config: %w", err), 1)
			}
			return nil
		},
	}
}

func defaultConfigYAML() ([]byte, error) {
	buf := bytes.NewBufferString(defaultConfigHeader)
	enc := yaml.NewEncoder(buf)
	enc.SetIndent(2)
	if err := enc.Encode(config.DefaultConfig); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

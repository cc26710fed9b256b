// Command dbccli inspects, validates, decodes and re-serializes DBC
// files from the shell.
package main

import (
	"encoding/hex"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/canframe/godbc"
	"github.com/canframe/godbc/codec"
	"github.com/canframe/godbc/internal/utils"
	"github.com/charmbracelet/log"
	"github.com/fatih/color"
	"github.com/urfave/cli/v2"
)

var logger = log.NewWithOptions(os.Stderr, log.Options{Level: log.InfoLevel})

func main() {
	app := &cli.App{
		Name:  "dbccli",
		Usage: "parse, validate, decode and encode CAN DBC files",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Usage: "path to a YAML file overriding the default size limits"},
		},
		Commands: []*cli.Command{
			checkCommand,
			describeCommand,
			decodeCommand,
			encodeCommand,
			toTextCommand,
		},
	}
	if err := app.Run(os.Args); err != nil {
		logger.Error(err.Error())
		os.Exit(1)
	}
}

func optionsFromCtx(c *cli.Context) (godbc.Options, error) {
	return loadOptions(c.String("config"))
}

func parseFileArg(c *cli.Context, argPos int) (*godbc.Dbc, error) {
	path := c.Args().Get(argPos)
	if path == "" {
		return nil, fmt.Errorf("missing DBC file path argument")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	opts, err := optionsFromCtx(c)
	if err != nil {
		return nil, err
	}
	return godbc.ParseWithOptions(data, opts)
}

var checkCommand = &cli.Command{
	Name:      "check",
	Usage:     "parse and validate a DBC file, reporting the first error found",
	ArgsUsage: "<file>",
	Action: func(c *cli.Context) error {
		dbc, err := parseFileArg(c, 0)
		if err != nil {
			color.Red("FAIL: %v", err)
			return cli.Exit("", 1)
		}
		color.Green("OK: %d messages, %d nodes", dbc.Messages.Len(), dbc.Nodes.Len())
		return nil
	},
}

var describeCommand = &cli.Command{
	Name:      "describe",
	Usage:     "print every message and signal in the DBC file",
	ArgsUsage: "<file>",
	Action: func(c *cli.Context) error {
		dbc, err := parseFileArg(c, 0)
		if err != nil {
			return err
		}
		messages := append([]godbc.Message(nil), dbc.Messages.All()...)
		sort.Slice(messages, func(i, j int) bool { return messages[i].ID < messages[j].ID })

		bold := color.New(color.Bold)
		for _, m := range messages {
			bold.Printf("%d %s (dlc=%d sender=%s)\n", m.ID, m.Name, m.Dlc, m.Sender)
			for _, s := range m.Signals() {
				fmt.Printf("  %-24s start=%-3d len=%-3d %-12s factor=%-10g offset=%-10g unit=%q\n",
					s.Name, s.StartBit, s.Length, s.ByteOrder, s.Factor, s.Offset, utils.EscapeControlChars([]byte(s.Unit)))
			}
		}
		return nil
	},
}

var decodeCommand = &cli.Command{
	Name:      "decode",
	Usage:     "decode one frame: <id>#<hex payload>",
	ArgsUsage: "<file> <id>#<hex>",
	Action: func(c *cli.Context) error {
		dbc, err := parseFileArg(c, 0)
		if err != nil {
			return err
		}
		id, payload, err := parseFrameArg(c.Args().Get(1))
		if err != nil {
			return err
		}
		signals, err := codec.Decode(dbc, id, payload)
		if err != nil {
			return err
		}
		for _, s := range signals {
			fmt.Printf("%s,%d,%g,%s\n", s.Name, s.Raw, s.Physical, utils.EscapeControlChars([]byte(s.Unit)))
		}
		return nil
	},
}

var encodeCommand = &cli.Command{
	Name:      "encode",
	Usage:     "encode one frame: <id> <name=value,name=value,...>",
	ArgsUsage: "<file> <id> <assignments>",
	Action: func(c *cli.Context) error {
		dbc, err := parseFileArg(c, 0)
		if err != nil {
			return err
		}
		id64, err := strconv.ParseUint(c.Args().Get(1), 0, 32)
		if err != nil {
			return fmt.Errorf("invalid message id: %w", err)
		}
		values, err := parseAssignments(c.Args().Get(2))
		if err != nil {
			return err
		}
		payload, err := codec.Encode(dbc, uint32(id64), values)
		if err != nil {
			return err
		}
		fmt.Println(hex.EncodeToString(payload))
		return nil
	},
}

var toTextCommand = &cli.Command{
	Name:      "to-text",
	Usage:     "parse then re-serialize to canonical DBC text on stdout",
	ArgsUsage: "<file>",
	Action: func(c *cli.Context) error {
		dbc, err := parseFileArg(c, 0)
		if err != nil {
			return err
		}
		fmt.Print(godbc.ToText(dbc))
		return nil
	},
}

func parseFrameArg(arg string) (uint32, []byte, error) {
	parts := strings.SplitN(arg, "#", 2)
	if len(parts) != 2 {
		return 0, nil, fmt.Errorf("frame argument must be <id>#<hex>, got %q", arg)
	}
	id64, err := strconv.ParseUint(parts[0], 0, 32)
	if err != nil {
		return 0, nil, fmt.Errorf("invalid message id: %w", err)
	}
	payload, err := hex.DecodeString(parts[1])
	if err != nil {
		return 0, nil, fmt.Errorf("invalid hex payload: %w", err)
	}
	return uint32(id64), payload, nil
}

func parseAssignments(arg string) (map[string]float64, error) {
	out := make(map[string]float64)
	if arg == "" {
		return out, nil
	}
	for _, pair := range strings.Split(arg, ",") {
		kv := strings.SplitN(pair, "=", 2)
		if len(kv) != 2 {
			return nil, fmt.Errorf("invalid assignment %q, want name=value", pair)
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(kv[1]), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid value for %q: %w", kv[0], err)
		}
		out[strings.TrimSpace(kv[0])] = v
	}
	return out, nil
}

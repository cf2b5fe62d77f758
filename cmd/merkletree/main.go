package main

import (
	"fmt"
	"log"
	"os"

	"github.com/Layr-Labs/merkletree-go/pkg/config"
	"github.com/urfave/cli/v2"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		log.Fatalf("Application error: %v", err)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "merkletree",
		Usage: "Build standard merkle trees and issue membership proofs",
		Description: `Builds merkle trees over ABI encoded entries and works with their proofs.

This tool can:
- Build a tree from a JSON list of entries and dump it as a snapshot
- Generate and verify membership proofs for individual entries
- Store snapshots and issued proofs in memory, badger or redis`,
		Version: "1.0.0",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "persistence",
				Usage:   fmt.Sprintf("Snapshot store: %s", config.GetSupportedPersistenceTypesString()),
				Value:   string(config.DefaultPersistenceType),
				EnvVars: []string{config.EnvMerklePersistenceType},
			},
			&cli.StringFlag{
				Name:    "data-path",
				Usage:   "Badger database directory",
				Value:   config.DefaultDataPath,
				EnvVars: []string{config.EnvMerkleDataPath},
			},
			&cli.StringFlag{
				Name:    "redis-address",
				Usage:   "Redis server address (host:port)",
				Value:   config.DefaultRedisAddress,
				EnvVars: []string{config.EnvMerkleRedisAddress},
			},
			&cli.StringFlag{
				Name:    "redis-password",
				Usage:   "Redis password",
				EnvVars: []string{config.EnvMerkleRedisPassword},
			},
			&cli.IntFlag{
				Name:    "redis-db",
				Usage:   "Redis database number",
				EnvVars: []string{config.EnvMerkleRedisDB},
			},
			&cli.StringFlag{
				Name:    "redis-key-prefix",
				Usage:   "Prefix for every Redis key",
				EnvVars: []string{config.EnvMerkleRedisKeyPrefix},
			},
			&cli.BoolFlag{
				Name:    "verbose",
				Usage:   "Enable verbose logging",
				EnvVars: []string{config.EnvMerkleVerbose},
			},
		},
		Commands: []*cli.Command{
			{
				Name:  "sample",
				Usage: "Build the sample allocation tree and prove the sample address",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "name",
						Usage: "Also store the snapshot under this name",
					},
				},
				Action: sampleCommand,
			},
			{
				Name:  "build",
				Usage: "Build a tree from a JSON list of entries",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "input",
						Aliases:  []string{"i"},
						Usage:    "JSON file holding a list of entries, each a list of values",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "schema",
						Usage: "Comma separated leaf encoding",
						Value: "address,uint256",
					},
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Output file for the snapshot (default: stdout)",
					},
					&cli.StringFlag{
						Name:  "name",
						Usage: "Store the snapshot under this name",
					},
					&cli.IntFlag{
						Name:  "workers",
						Usage: "Hashing workers (default: number of CPUs)",
					},
				},
				Action: buildCommand,
			},
			{
				Name:  "prove",
				Usage: "Generate the proof of one entry",
				Flags: []cli.Flag{
					dumpFlag(),
					nameFlag(),
					&cli.IntFlag{
						Name:  "index",
						Usage: "Entry index in input order",
						Value: -1,
					},
					&cli.StringFlag{
						Name:  "value",
						Usage: "Entry as a JSON list of values, looked up in the tree",
					},
					&cli.BoolFlag{
						Name:  "save",
						Usage: "Store the proof record (requires --name)",
					},
				},
				Action: proveCommand,
			},
			{
				Name:  "verify",
				Usage: "Verify a proof against a root",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "proof",
						Usage:    "Proof file, JSON proof, or comma separated sibling hashes",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "root",
						Usage: "Expected root (default: root in the proof file)",
					},
					&cli.StringFlag{
						Name:  "leaf",
						Usage: "Leaf hash (default: leaf in the proof file)",
					},
					&cli.StringFlag{
						Name:  "value",
						Usage: "Entry as a JSON list of values, hashed with --schema instead of --leaf",
					},
					&cli.StringFlag{
						Name:  "schema",
						Usage: "Comma separated leaf encoding used with --value",
						Value: "address,uint256",
					},
				},
				Action: verifyCommand,
			},
			{
				Name:   "render",
				Usage:  "Print the tree structure",
				Flags:  []cli.Flag{dumpFlag(), nameFlag()},
				Action: renderCommand,
			},
			{
				Name:  "list",
				Usage: "List stored snapshots, or the proofs of one tree",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "proofs",
						Usage: "List the stored proofs of this tree instead",
					},
				},
				Action: listCommand,
			},
			{
				Name:  "delete",
				Usage: "Delete a stored snapshot and its proofs",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "name",
						Usage:    "Snapshot name",
						Required: true,
					},
				},
				Action: deleteCommand,
			},
		},
	}
}

func dumpFlag() cli.Flag {
	return &cli.StringFlag{
		Name:  "dump",
		Usage: "Snapshot JSON file",
	}
}

func nameFlag() cli.Flag {
	return &cli.StringFlag{
		Name:  "name",
		Usage: "Stored snapshot name",
	}
}

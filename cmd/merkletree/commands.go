package main

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/Layr-Labs/merkletree-go/internal/sample"
	"github.com/Layr-Labs/merkletree-go/pkg/config"
	"github.com/Layr-Labs/merkletree-go/pkg/merkle"
	"github.com/Layr-Labs/merkletree-go/pkg/persistence"
	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
)

// sampleCommand builds the sample allocations and prints the dump, the proof of the
// sample address, the root and the leaf hash of the first entry
func sampleCommand(c *cli.Context) error {
	w := c.App.Writer
	fmt.Fprintln(w, "Generating merkle")

	tree, err := merkle.Build(sample.Entries(), sample.Schema())
	if err != nil {
		return errors.Wrap(err, "failed to build sample tree")
	}

	dump, err := json.Marshal(tree)
	if err != nil {
		return errors.Wrap(err, "failed to dump sample tree")
	}
	fmt.Fprintln(w, string(dump))

	for _, i := range entriesWithAddress(tree, common.HexToAddress(sample.TargetAddress)) {
		proof, err := tree.Proof(i)
		if err != nil {
			return err
		}
		fmt.Fprintln(w, "I:", i)
		fmt.Fprintln(w, "Proof:", hashList(proof))
	}

	leaf, err := tree.LeafHash(0)
	if err != nil {
		return err
	}
	fmt.Fprintln(w, "ROOT: "+tree.Root().Hex())
	fmt.Fprintln(w, "LEAF "+leaf.Hex())

	if name := c.String("name"); name != "" {
		return withStore(c, func(l *zap.Logger, store persistence.ITreePersistence) error {
			return saveSnapshot(l, store, name, tree)
		})
	}
	return nil
}

// buildCommand builds a tree from an entries file
func buildCommand(c *cli.Context) error {
	schema, err := config.ParseSchemaFlag(c.String("schema"))
	if err != nil {
		return errors.Wrap(err, "invalid --schema")
	}

	entries, err := readEntries(c.String("input"))
	if err != nil {
		return err
	}

	var opts []merkle.BuildOption
	if workers := c.Int("workers"); workers > 0 {
		opts = append(opts, merkle.WithWorkers(workers))
	}

	start := time.Now()
	tree, err := merkle.Build(entries, schema, opts...)
	if err != nil {
		return errors.Wrap(err, "failed to build tree")
	}

	data, err := merkle.MarshalSnapshot(tree.Dump())
	if err != nil {
		return err
	}
	if err := writeOutput(c.App.Writer, c.String("output"), data); err != nil {
		return err
	}

	name := c.String("name")
	if name == "" {
		return nil
	}
	return withStore(c, func(l *zap.Logger, store persistence.ITreePersistence) error {
		l.Sugar().Infow("Built tree",
			"entries", tree.Len(),
			"root", tree.Root().Hex(),
			"duration", time.Since(start).String(),
		)
		return saveSnapshot(l, store, name, tree)
	})
}

func saveSnapshot(l *zap.Logger, store persistence.ITreePersistence, name string, tree *merkle.Tree) error {
	record, err := persistence.NewSnapshotRecord(name, tree)
	if err != nil {
		return err
	}
	if err := store.SaveSnapshot(record); err != nil {
		return errors.Wrapf(err, "failed to save snapshot %q", name)
	}
	l.Sugar().Infow("Saved snapshot", "name", name, "root", record.Root.Hex())
	return nil
}

// proveCommand prints the proof of one entry of a dumped or stored tree
func proveCommand(c *cli.Context) error {
	name := c.String("name")
	if c.Bool("save") && name == "" {
		return fmt.Errorf("--save requires --name")
	}

	run := func(l *zap.Logger, store persistence.ITreePersistence) error {
		tree, err := loadTree(c.String("dump"), name, store)
		if err != nil {
			return err
		}

		index, err := resolveIndex(c, tree)
		if err != nil {
			return err
		}

		doc := proofDocument{Tree: name, Index: index, Root: tree.Root()}
		if c.Bool("save") {
			record, err := persistence.NewProofRecord(name, tree, index)
			if err != nil {
				return err
			}
			if err := store.SaveProof(record); err != nil {
				return errors.Wrap(err, "failed to save proof")
			}
			l.Sugar().Infow("Saved proof", "id", record.ID, "tree", name, "index", index)
			doc.ID = record.ID
			doc.Leaf = record.Leaf
			doc.Proof = record.Proof
		} else {
			if doc.Proof, err = tree.Proof(index); err != nil {
				return err
			}
			if doc.Leaf, err = tree.LeafHash(index); err != nil {
				return err
			}
		}

		data, err := json.MarshalIndent(doc, "", "  ")
		if err != nil {
			return err
		}
		return writeOutput(c.App.Writer, "", data)
	}

	if name == "" {
		return run(zap.NewNop(), nil)
	}
	return withStore(c, run)
}

// resolveIndex picks the entry from --index or --value
func resolveIndex(c *cli.Context, tree *merkle.Tree) (int, error) {
	value := c.String("value")
	index := c.Int("index")

	switch {
	case value != "" && index >= 0:
		return 0, fmt.Errorf("--index and --value are mutually exclusive")
	case value != "":
		entry, err := parseEntry(value)
		if err != nil {
			return 0, err
		}
		return tree.IndexOf(entry)
	case index >= 0:
		return index, nil
	default:
		return 0, fmt.Errorf("one of --index or --value is required")
	}
}

// verifyCommand checks a proof against a root
func verifyCommand(c *cli.Context) error {
	parsed, err := readProofInput(c.String("proof"))
	if err != nil {
		return errors.Wrap(err, "invalid --proof")
	}

	root := parsed.Root
	if s := c.String("root"); s != "" {
		h, err := merkle.ParseHash(s)
		if err != nil {
			return errors.Wrap(err, "invalid --root")
		}
		root = &h
	}
	if root == nil {
		return fmt.Errorf("--root is required when the proof does not carry one")
	}

	leaf := parsed.Leaf
	switch {
	case c.String("value") != "":
		schema, err := config.ParseSchemaFlag(c.String("schema"))
		if err != nil {
			return errors.Wrap(err, "invalid --schema")
		}
		entry, err := parseEntry(c.String("value"))
		if err != nil {
			return err
		}
		h, err := merkle.EntryLeafHash(schema, entry)
		if err != nil {
			return errors.Wrap(err, "invalid --value")
		}
		leaf = &h
	case c.String("leaf") != "":
		h, err := merkle.ParseHash(c.String("leaf"))
		if err != nil {
			return errors.Wrap(err, "invalid --leaf")
		}
		leaf = &h
	}
	if leaf == nil {
		return fmt.Errorf("one of --leaf or --value is required when the proof does not carry a leaf")
	}

	valid, err := merkle.Verify(*leaf, parsed.Proof, *root)
	if err != nil {
		return err
	}
	if !valid {
		return cli.Exit("❌ proof is invalid", 1)
	}
	fmt.Fprintln(c.App.Writer, "✅ proof is valid")
	return nil
}

// renderCommand prints the tree structure
func renderCommand(c *cli.Context) error {
	run := func(_ *zap.Logger, store persistence.ITreePersistence) error {
		tree, err := loadTree(c.String("dump"), c.String("name"), store)
		if err != nil {
			return err
		}
		fmt.Fprint(c.App.Writer, tree.Render())
		return nil
	}

	if c.String("name") == "" {
		return run(zap.NewNop(), nil)
	}
	return withStore(c, run)
}

// listCommand lists stored snapshots, or the stored proofs of one tree
func listCommand(c *cli.Context) error {
	return withStore(c, func(_ *zap.Logger, store persistence.ITreePersistence) error {
		w := c.App.Writer

		if treeName := c.String("proofs"); treeName != "" {
			proofs, err := store.ListProofs(treeName)
			if err != nil {
				return err
			}
			for _, p := range proofs {
				fmt.Fprintf(w, "%s\tindex=%d\tleaf=%s\tcreated=%s\n",
					p.ID, p.Index, p.Leaf.Hex(), time.Unix(p.CreatedAt, 0).UTC().Format(time.RFC3339))
			}
			return nil
		}

		snapshots, err := store.ListSnapshots()
		if err != nil {
			return err
		}
		for _, s := range snapshots {
			fmt.Fprintf(w, "%s\troot=%s\tentries=%d\tcreated=%s\n",
				s.Name, s.Root.Hex(), len(s.Snapshot.Values), time.Unix(s.CreatedAt, 0).UTC().Format(time.RFC3339))
		}
		return nil
	})
}

// deleteCommand deletes a stored snapshot together with its proofs
func deleteCommand(c *cli.Context) error {
	name := c.String("name")

	return withStore(c, func(l *zap.Logger, store persistence.ITreePersistence) error {
		proofs, err := store.ListProofs(name)
		if err != nil {
			return err
		}
		for _, p := range proofs {
			if err := store.DeleteProof(p.ID); err != nil {
				return errors.Wrapf(err, "failed to delete proof %s", p.ID)
			}
		}
		if err := store.DeleteSnapshot(name); err != nil {
			return errors.Wrapf(err, "failed to delete snapshot %q", name)
		}

		l.Sugar().Infow("Deleted snapshot", "name", name, "proofs", len(proofs))
		fmt.Fprintf(c.App.Writer, "Deleted %s and %d proofs\n", name, len(proofs))
		return nil
	})
}

// entriesWithAddress returns the indices of the entries whose first value is addr
func entriesWithAddress(tree *merkle.Tree, addr common.Address) []int {
	var indices []int
	for i, entry := range tree.Entries() {
		if len(entry) == 0 {
			continue
		}
		s, ok := entry[0].(string)
		if !ok || !common.IsHexAddress(s) {
			continue
		}
		if common.HexToAddress(s) == addr {
			indices = append(indices, i)
		}
	}
	return indices
}

func hashList(proof merkle.Proof) string {
	hashes := proof.Hashes()
	parts := make([]string, len(hashes))
	for i, h := range hashes {
		parts[i] = "'" + h.Hex() + "'"
	}
	return "[ " + strings.Join(parts, ", ") + " ]"
}

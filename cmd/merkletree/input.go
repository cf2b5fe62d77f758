package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/Layr-Labs/merkletree-go/pkg/merkle"
	"github.com/Layr-Labs/merkletree-go/pkg/persistence"
	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
)

// decodeJSON decodes data keeping numbers as json.Number so large integers survive
func decodeJSON(data []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	return dec.Decode(v)
}

// readEntries reads a JSON file holding a list of entries, each a list of values
func readEntries(path string) ([]merkle.Entry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read entries from %s", path)
	}

	var raw [][]any
	if err := decodeJSON(data, &raw); err != nil {
		return nil, errors.Wrapf(err, "failed to decode entries from %s", path)
	}

	entries := make([]merkle.Entry, len(raw))
	for i, values := range raw {
		entries[i] = merkle.Entry(values)
	}
	return entries, nil
}

// parseEntry decodes a single entry given as a JSON list of values
func parseEntry(value string) (merkle.Entry, error) {
	var raw []any
	if err := decodeJSON([]byte(value), &raw); err != nil {
		return nil, errors.Wrap(err, "entry must be a JSON list of values")
	}
	return merkle.Entry(raw), nil
}

// loadTree loads the tree named by --dump (a snapshot file) or --name (a stored snapshot)
func loadTree(dumpPath, name string, store persistence.ITreePersistence) (*merkle.Tree, error) {
	switch {
	case dumpPath != "" && name != "":
		return nil, fmt.Errorf("--dump and --name are mutually exclusive")
	case dumpPath != "":
		data, err := os.ReadFile(dumpPath)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to read snapshot %s", dumpPath)
		}
		tree, err := merkle.LoadJSON(data)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to load snapshot %s", dumpPath)
		}
		return tree, nil
	case name != "":
		if store == nil {
			return nil, fmt.Errorf("no persistence available to load %q", name)
		}
		record, err := store.LoadSnapshot(name)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to load snapshot %q", name)
		}
		if record == nil {
			return nil, fmt.Errorf("snapshot %q not found", name)
		}
		return record.Tree()
	default:
		return nil, fmt.Errorf("one of --dump or --name is required")
	}
}

// proofDocument is the output of the prove command
type proofDocument struct {
	ID    string       `json:"id,omitempty"`
	Tree  string       `json:"tree,omitempty"`
	Index int          `json:"index"`
	Leaf  common.Hash  `json:"leaf"`
	Root  common.Hash  `json:"root"`
	Proof merkle.Proof `json:"proof"`
}

// parsedProof is a proof read back from the command line, with the leaf and root it
// carried when it came from a prove output
type parsedProof struct {
	Proof merkle.Proof
	Leaf  *common.Hash
	Root  *common.Hash
}

// readProofInput accepts a file path, inline JSON or comma separated sibling hashes.
// Files and inline JSON may hold a bare proof or a prove output document.
func readProofInput(input string) (*parsedProof, error) {
	input = strings.TrimSpace(input)

	data := []byte(input)
	if _, err := os.Stat(input); err == nil {
		fileData, err := os.ReadFile(input)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to read proof file %s", input)
		}
		data = bytes.TrimSpace(fileData)
	}

	switch {
	case len(data) > 0 && data[0] == '{':
		var doc struct {
			Leaf  *common.Hash    `json:"leaf"`
			Root  *common.Hash    `json:"root"`
			Proof json.RawMessage `json:"proof"`
		}
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil, errors.Wrap(err, "failed to decode proof document")
		}
		proof, err := merkle.ParseProof(doc.Proof)
		if err != nil {
			return nil, err
		}
		return &parsedProof{Proof: proof, Leaf: doc.Leaf, Root: doc.Root}, nil
	case len(data) > 0 && data[0] == '[':
		proof, err := merkle.ParseProof(data)
		if err != nil {
			return nil, err
		}
		return &parsedProof{Proof: proof}, nil
	case len(data) == 0:
		return &parsedProof{Proof: merkle.Proof{}}, nil
	}

	parts := strings.Split(string(data), ",")
	hashes := make([]common.Hash, len(parts))
	for i, part := range parts {
		h, err := merkle.ParseHash(part)
		if err != nil {
			return nil, err
		}
		hashes[i] = h
	}
	return &parsedProof{Proof: merkle.ProofFromHashes(hashes)}, nil
}

// writeOutput writes data to path, or to the app writer when path is empty
func writeOutput(w io.Writer, path string, data []byte) error {
	if path == "" {
		_, err := fmt.Fprintln(w, string(data))
		return err
	}
	if err := os.WriteFile(path, append(data, '\n'), 0644); err != nil {
		return errors.Wrapf(err, "failed to write %s", path)
	}
	return nil
}

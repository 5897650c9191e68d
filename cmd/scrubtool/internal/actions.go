package internal

import (
	"fmt"
	"io"

	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/spacemeshos/go-scrub/merkle"
	"github.com/spacemeshos/go-scrub/rangeindex"
	"github.com/spacemeshos/go-scrub/types"
)

// BuildTree builds a tree with leafCount leaves from the object listing at
// objectsPath and writes its encoding to outPath.
func BuildTree(fs afero.Fs, logger *zap.Logger, objectsPath, outPath string, leafCount int) error {
	f, err := fs.Open(objectsPath)
	if err != nil {
		return fmt.Errorf("open object listing: %w", err)
	}
	defer f.Close()
	objects, err := ParseObjects(f)
	if err != nil {
		return fmt.Errorf("%s: %w", objectsPath, err)
	}

	tree, err := merkle.New(leafCount)
	if err != nil {
		return err
	}
	tree.Populate(objects)
	tree.Build()
	buf, err := tree.Encode()
	if err != nil {
		return fmt.Errorf("encode tree: %w", err)
	}
	if err := writeFile(fs, outPath, buf); err != nil {
		return fmt.Errorf("write tree: %w", err)
	}

	root, _ := tree.Root()
	stats := tree.Stats()
	logger.Info("tree built",
		zap.String("out", outPath),
		zap.Int("leaves", tree.LeafCount()),
		zap.Uint64("objects", stats.ObjectsSeen),
		zap.Int("nonempty_leaves", stats.NonEmptyLeaves),
		zap.String("root", fmt.Sprintf("%016x", root)),
	)
	return nil
}

// writeFile atomically replaces the file at path with data.
func writeFile(fs afero.Fs, path string, data []byte) error {
	tmp := path + ".tmp"
	if err := afero.WriteFile(fs, tmp, data, 0o644); err != nil {
		return err
	}
	if err := fs.Rename(tmp, path); err != nil {
		fs.Remove(tmp)
		return err
	}
	return nil
}

func readTree(fs afero.Fs, path string) (*merkle.Tree, error) {
	buf, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, fmt.Errorf("read tree: %w", err)
	}
	tree, err := merkle.Decode(buf)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return tree, nil
}

// DumpTree prints the shape, root and non-empty leaves of the encoded tree
// at path.
func DumpTree(fs afero.Fs, w io.Writer, path string) error {
	tree, err := readTree(fs, path)
	if err != nil {
		return err
	}
	root, err := tree.Root()
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "leaves: %d\n", tree.LeafCount())
	fmt.Fprintf(w, "depth: %d\n", tree.Depth())
	fmt.Fprintf(w, "root: %016x\n", root)
	for pos := range tree.LeafCount() {
		if v := tree.Leaf(pos); v != 0 {
			fmt.Fprintf(w, "leaf %d %s %016x\n", pos, tree.BucketRange(pos), v)
		}
	}
	return nil
}

// DiffTrees compares the encoded trees at pathA and pathB and prints the
// divergent and consistent hash ranges. The consistent ranges are tagged with
// peer.
func DiffTrees(fs afero.Fs, w io.Writer, pathA, pathB string, peer types.ShardID) error {
	a, err := readTree(fs, pathA)
	if err != nil {
		return err
	}
	b, err := readTree(fs, pathB)
	if err != nil {
		return err
	}
	idx := rangeindex.New()
	res, err := a.Compare(b, peer, idx)
	if err != nil {
		return err
	}
	if res.Equal {
		fmt.Fprintln(w, "equal")
		return nil
	}
	for _, r := range res.Divergent {
		fmt.Fprintf(w, "divergent %s\n", r)
	}
	for _, e := range idx.Entries(peer) {
		fmt.Fprintf(w, "consistent %s\n", e.Range)
	}
	fmt.Fprintf(w, "divergent hashes: %d\n", res.DivergentHashes())
	return nil
}

package internal

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spacemeshos/go-scrub/merkle"
	"github.com/spacemeshos/go-scrub/types"
)

// ParseObjects reads an object listing: one "hash epoch counter" triple per
// line. Numbers may be given in hex with a 0x prefix. Empty lines and
// everything after '#' are ignored.
func ParseObjects(r io.Reader) ([]merkle.Object, error) {
	var objects []merkle.Object
	sc := bufio.NewScanner(r)
	for n := 1; sc.Scan(); n++ {
		line := sc.Text()
		if i := strings.IndexByte(line, '#'); i >= 0 {
			line = line[:i]
		}
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		if len(fields) != 3 {
			return nil, fmt.Errorf("%w: line %d: want 3 fields, got %d", ErrBadListing, n, len(fields))
		}
		h, err := strconv.ParseUint(fields[0], 0, 32)
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: hash: %w", ErrBadListing, n, err)
		}
		epoch, err := strconv.ParseUint(fields[1], 0, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: epoch: %w", ErrBadListing, n, err)
		}
		counter, err := strconv.ParseUint(fields[2], 0, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: counter: %w", ErrBadListing, n, err)
		}
		objects = append(objects, merkle.Object{
			Hash:    uint32(h),
			Version: types.Version{Epoch: epoch, Counter: counter},
		})
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read object listing: %w", err)
	}
	return objects, nil
}

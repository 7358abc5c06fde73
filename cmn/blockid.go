package cmn

import (
	"fmt"
	"strconv"
	"strings"
)

const blockIDSep = "__blk"

// BlockID builds the canonical "<filename>__blk<index>" id for a block (§3, §6).
func BlockID(filename string, index int) string {
	return fmt.Sprintf("%s%s%d", filename, blockIDSep, index)
}

// ParseBlockID splits a canonical block id back into its filename and index.
// Nothing in this module calls it — the coordinator and storage node never
// need to parse an id they themselves constructed.
func ParseBlockID(id string) (filename string, index int, ok bool) {
	i := strings.LastIndex(id, blockIDSep)
	if i < 0 {
		return "", 0, false
	}
	idx, err := strconv.Atoi(id[i+len(blockIDSep):])
	if err != nil || idx < 0 {
		return "", 0, false
	}
	return id[:i], idx, true
}

// SanitizeBlockID maps a block id to a filesystem-safe name by replacing
// path separators, per §4.1/§6 ("/" becomes "_").
func SanitizeBlockID(id string) string {
	return strings.ReplaceAll(id, "/", "_")
}

// NumBlocks returns ceil(size/blockSize) for size > 0, matching the §3 invariant.
func NumBlocks(size, blockSize int) int {
	if size <= 0 || blockSize <= 0 {
		return 0
	}
	return (size + blockSize - 1) / blockSize
}

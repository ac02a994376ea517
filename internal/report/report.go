package report

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/autobrr/go-vbkinfo/internal/settings"
	"github.com/autobrr/go-vbkinfo/internal/vbk"
)

const productVersion = "0.1.0.0"

// WriteReport renders a text summary of an open container to reportName,
// or to stdout when reportName is "-". An existing file at reportName is
// backed up with a unix-timestamp suffix before being overwritten.
func WriteReport(reportName string, p *vbk.Parser, tree []vbk.DirNode, st settings.Settings) (string, string, error) {
	if reportName != "-" {
		if _, err := os.Stat(reportName); err == nil {
			backup := fmt.Sprintf("%s.%d", reportName, time.Now().Unix())
			_ = os.Rename(reportName, backup)
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%-16s%s\n", "File:", p.Path)
	fmt.Fprintf(&b, "%-16s%s\n", "Type:", p.Kind)
	fmt.Fprintf(&b, "%-16s%s (%s bytes)\n", "Size:", humanize.IBytes(uint64(p.FileSize)), humanize.Comma(p.FileSize))
	fmt.Fprintf(&b, "%-16s%s\n", "Digest type:", p.Header.DigestType)
	fmt.Fprintf(&b, "%-16s%d\n", "Header version:", p.Header.Version)
	fmt.Fprintf(&b, "%-16d banks (max %d)\n\n", len(p.Slot.BankInfos), p.Header.MaxBanks())

	if st.IncludeVersionNotes {
		fmt.Fprintf(&b, "%-16s%s\n\n", "vbkinfo:", productVersion)
	}

	if !st.SummaryOnly {
		writeTree(&b, p, tree, st, 0)
	}

	output := b.String()
	if reportName == "-" {
		_, err := os.Stdout.WriteString(output)
		return reportName, output, err
	}
	return reportName, output, os.WriteFile(reportName, []byte(output), 0o644)
}

func writeTree(b *strings.Builder, p *vbk.Parser, nodes []vbk.DirNode, st settings.Settings, depth int) {
	indent := strings.Repeat("  ", depth)
	for _, node := range nodes {
		item := node.Item
		if item.IsDir() {
			fmt.Fprintf(b, "%s[%s]  (%d children)\n", indent, item.Name, item.ChildrenNum)
			writeTree(b, p, node.Children, st, depth+1)
			continue
		}
		size := "-"
		if item.FibSize > 0 {
			size = humanize.IBytes(item.FibSize * vbk.BlockSize)
		}
		fmt.Fprintf(b, "%s%-10s%-40s%s\n", indent, item.FileType, item.Name, size)

		if props, err := p.ReadPropsDictionary(item.PropsLoc); err == nil && props.Valid() {
			fmt.Fprintf(b, "%s  props: %s\n", indent, props.Summary())
		}

		if st.ValidateBlocks {
			writeBlockValidation(b, p, item, st, depth+1)
		}
	}
}

// writeBlockValidation resolves and prints up to st.MaxBlocksShown block
// descriptors for a single file entry, cross-referencing each against its
// datastore storage block.
func writeBlockValidation(b *strings.Builder, p *vbk.Parser, item vbk.DirItem, st settings.Settings, depth int) {
	indent := strings.Repeat("  ", depth)

	if item.IsIncrement() {
		blocks, err := p.ReadPatchBlockDescriptors(item)
		if err != nil {
			fmt.Fprintf(b, "%sblock validation error: %s\n", indent, err)
			return
		}
		shown := min(st.MaxBlocksShown, len(blocks))
		fmt.Fprintf(b, "%sshowing %d patch blocks (total %d)\n", indent, shown, len(blocks))
		for _, pb := range blocks[:shown] {
			fmt.Fprintf(b, "%s- size=%d loc_type=%d digest=%x dsid=%d block_off=%d\n",
				indent, pb.Size, pb.LocType, pb.Digest, pb.ID, pb.Offset)
			writeStorageBlock(b, p, pb.ID, depth+1)
		}
		return
	}

	blocks, err := p.ReadFileBlockDescriptors(item)
	if err != nil {
		fmt.Fprintf(b, "%sblock validation error: %s\n", indent, err)
		return
	}
	nonSparse := make([]vbk.FibBlock, 0, len(blocks))
	for _, fb := range blocks {
		if !fb.IsSparse() {
			nonSparse = append(nonSparse, fb)
		}
	}
	shown := min(st.MaxBlocksShown, len(nonSparse))
	fmt.Fprintf(b, "%sshowing %d file blocks (total %d, non-sparse %d)\n", indent, shown, len(blocks), len(nonSparse))
	for _, fb := range nonSparse[:shown] {
		fmt.Fprintf(b, "%s- size=%d loc_type=%d digest=%x dsid=%d flags=%#x\n",
			indent, fb.Size, fb.LocType, fb.Digest, fb.ID, fb.Flags)
		writeStorageBlock(b, p, fb.ID, depth+1)
	}
}

func writeStorageBlock(b *strings.Builder, p *vbk.Parser, id uint64, depth int) {
	indent := strings.Repeat("  ", depth)
	stg, ok, err := p.GetDatastoreBlock(id)
	if err != nil || !ok {
		return
	}
	fmt.Fprintf(b, "%sstorage: loc=%s off=%#x comp=%s comp_size=%d src_size=%d digest=%x\n",
		indent, stg.Location, stg.Offset, stg.CompType, stg.CompSize, stg.SrcSize, stg.Digest)
}

// BuildSummary renders a one-line overview: kind, path, size, bank count
// and top-level entry count. It is shorter than WriteReport with
// settings.SummaryOnly set, which keeps the header block and omits only
// the directory tree.
func BuildSummary(p *vbk.Parser, tree []vbk.DirNode) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s: %s, %d banks, %d top-level entries\n",
		p.Kind, p.Path, humanize.IBytes(uint64(p.FileSize)), len(p.Slot.BankInfos), len(tree))
	return b.String()
}

// vbkdump is a developer debugging tool: it opens a container file and
// dumps low-level structures (header, the active slot, its bank table and
// the root directory entries) without any of the friendliness of vbkinfo.
package main

import (
	"flag"
	"fmt"
	"log"

	"github.com/autobrr/go-vbkinfo/internal/vbk"
)

func main() {
	path := flag.String("path", "", "container file to dump")
	bankID := flag.Int("bank", -1, "dump the bank table entry for a single bank id (-1 for all)")
	flag.Parse()

	if *path == "" {
		log.Fatalf("vbkdump: -path is required")
	}

	p, err := vbk.Open(*path)
	if err != nil {
		log.Fatalf("vbkdump: open: %v", err)
	}
	defer p.Close()

	fmt.Printf("header: %+v\n", p.Header)
	fmt.Printf("slot: crc=%#x max_banks=%d allocated_banks=%d\n",
		p.Slot.CRC, p.Slot.MaxBanks, p.Slot.AllocatedBanks)
	fmt.Printf("snapshot: version=%d storage_eof=%d n_banks=%d\n",
		p.Slot.Snapshot.Version, p.Slot.Snapshot.StorageEOF, p.Slot.Snapshot.NBanks)

	for i, info := range p.Slot.BankInfos {
		if *bankID >= 0 && i != *bankID {
			continue
		}
		fmt.Printf("bank %d: crc=%#x offset=%#x size=%#x\n", i, info.CRC, info.Offset, info.Size)
	}

	root := p.Root()
	fmt.Printf("root dir: %s\n", root)

	items, err := p.ReadDirItems(root)
	if err != nil {
		log.Fatalf("vbkdump: read root dir items: %v", err)
	}
	for _, item := range items {
		fmt.Printf("  %-10s %q\n", item.FileType, item.Name)
	}
}

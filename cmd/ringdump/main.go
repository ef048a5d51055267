// Command ringdump inspects a channel region: header fields, occupancy,
// readiness verdict, and the unconsumed entries decoded per channel type.
// It maps a region snapshot file or a POSIX shared-memory object; on a
// live system, stop the producing side first.
package main

import (
	"flag"
	"fmt"
	"os"

	"golang.org/x/sys/unix"

	"lumen/microkit"
	"lumen/proto"
	"lumen/ring"
)

func main() {
	var (
		file    = flag.String("file", "", "Region snapshot file to map.")
		shm     = flag.String("shm", "", "POSIX shared memory object name (under /dev/shm).")
		kind    = flag.String("kind", "", "Entry type to decode: input, command or frame (empty = header only).")
		maxDump = flag.Int("max", 32, "Maximum entries to print.")
	)
	flag.Parse()

	path := *file
	if path == "" && *shm != "" {
		path = "/dev/shm/" + *shm
	}
	if path == "" {
		fmt.Fprintln(os.Stderr, "ringdump: need -file or -shm")
		os.Exit(2)
	}

	region, cleanup, err := mapRegion(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ringdump: %v\n", err)
		os.Exit(1)
	}
	defer cleanup()

	state, err := ring.Inspect(region)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ringdump: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("region      %s (%d bytes)\n", path, region.Size())
	fmt.Printf("capacity    %d\n", state.Capacity)
	fmt.Printf("write index %d\n", state.WriteIndex)
	fmt.Printf("read index  %d\n", state.ReadIndex)
	fmt.Printf("occupancy   %d\n", state.Occupancy)
	fmt.Printf("verdict     %s\n", state.Verdict)

	if *kind == "" || state.Verdict != ring.VerdictReady {
		return
	}

	if err := dumpEntries(region, *kind, *maxDump); err != nil {
		fmt.Fprintf(os.Stderr, "ringdump: %v\n", err)
		os.Exit(1)
	}
}

func mapRegion(path string) (*microkit.Region, func(), error) {
	fd, err := unix.Open(path, unix.O_RDONLY, 0)
	if err != nil {
		return nil, nil, fmt.Errorf("open %s: %w", path, err)
	}

	var st unix.Stat_t
	if err := unix.Fstat(fd, &st); err != nil {
		unix.Close(fd)
		return nil, nil, fmt.Errorf("stat %s: %w", path, err)
	}
	if st.Size == 0 {
		unix.Close(fd)
		return nil, nil, fmt.Errorf("%s is empty", path)
	}

	mem, err := unix.Mmap(fd, 0, int(st.Size), unix.PROT_READ, unix.MAP_SHARED)
	if err != nil {
		unix.Close(fd)
		return nil, nil, fmt.Errorf("mmap %s: %w", path, err)
	}

	region, err := microkit.NewRegion(mem)
	if err != nil {
		unix.Munmap(mem)
		unix.Close(fd)
		return nil, nil, err
	}
	cleanup := func() {
		unix.Munmap(mem)
		unix.Close(fd)
	}
	return region, cleanup, nil
}

func dumpEntries(region *microkit.Region, kind string, max int) error {
	switch kind {
	case "input":
		return dump[proto.KeyEvent](region, proto.KeyEventCodec{}, max, func(e proto.KeyEvent) string {
			state := "up"
			if e.Pressed {
				state = "down"
			}
			return fmt.Sprintf("key %d %s", e.Code, state)
		})
	case "command":
		return dump[proto.Command](region, proto.CommandCodec{}, max, func(c proto.Command) string {
			return fmt.Sprintf("%s arg=%d seq=%d", c.Op, c.Arg, c.Seq)
		})
	case "frame":
		return dump[proto.Frame](region, proto.FrameCodec{}, max, func(f proto.Frame) string {
			return fmt.Sprintf("flags=%#x len=%d", f.Flags, len(f.Data))
		})
	default:
		return fmt.Errorf("unknown entry kind %q", kind)
	}
}

func dump[E any](region *microkit.Region, codec ring.Codec[E], max int, format func(E) string) error {
	entries, err := ring.DumpEntries(region, codec.EntrySize())
	if err != nil {
		return err
	}
	for i, raw := range entries {
		if i >= max {
			fmt.Printf("... %d more\n", len(entries)-max)
			return nil
		}
		e, err := codec.Decode(raw)
		if err != nil {
			fmt.Printf("[%d] corrupt: %v\n", i, err)
			continue
		}
		fmt.Printf("[%d] %s\n", i, format(e))
	}
	return nil
}

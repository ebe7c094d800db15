package rsfs

import (
	"bytes"
	"fmt"
	"io"

	"github.com/hupe1980/rsfs/internal/dir"
)

// FileInfo describes one file in a Report.
type FileInfo struct {
	Name   string
	Length int
	Inode  int
}

// Report is a diagnostic snapshot of the file system.
//
// Each count is read under its own lock, so counts taken while other
// goroutines mutate the file system may disagree slightly with each other.
type Report struct {
	Files []FileInfo

	TotalBlocks int
	UsedBlocks  int

	TotalInodes int
	UsedInodes  int

	OpenFileSlots int
	OpenFiles     int
}

// WriteTo writes the report as a human-readable table.
func (r Report) WriteTo(w io.Writer) (int64, error) {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "\nCurrent status of the file system:\n\n %16s%10s%10s\n", "File Name", "Length", "iNode #")
	for _, f := range r.Files {
		fmt.Fprintf(&buf, "%16s%10d%10d\n", f.Name, f.Length, f.Inode)
	}

	fmt.Fprintf(&buf, "\nTotal Data Blocks: %4d,  Used: %d,  Unused: %d\n",
		r.TotalBlocks, r.UsedBlocks, r.TotalBlocks-r.UsedBlocks)
	fmt.Fprintf(&buf, "Total iNode Blocks: %3d,  Used: %d,  Unused: %d\n",
		r.TotalInodes, r.UsedInodes, r.TotalInodes-r.UsedInodes)
	fmt.Fprintf(&buf, "Total Opened Files: %3d,  Slots: %d,  Free: %d\n\n",
		r.OpenFiles, r.OpenFileSlots, r.OpenFileSlots-r.OpenFiles)

	return buf.WriteTo(w)
}

func (r Report) String() string {
	var buf bytes.Buffer
	_, _ = r.WriteTo(&buf)
	return buf.String()
}

// Stat returns a snapshot of the namespace and pool usage. Stat calls are
// serialized against each other only; file data is never modified.
func (fs *FS) Stat() Report {
	fs.statMu.Lock()
	defer fs.statMu.Unlock()

	r := Report{
		Files:         make([]FileInfo, 0, fs.dir.Len()),
		TotalBlocks:   fs.blocks.Len(),
		TotalInodes:   fs.inodes.Len(),
		OpenFileSlots: fs.files.Len(),
	}

	fs.dir.Range(func(e *dir.Entry) bool {
		in := fs.inodes.Get(e.Inode())
		in.RLock()
		length := in.Length()
		in.RUnlock()

		r.Files = append(r.Files, FileInfo{
			Name:   e.Name(),
			Length: length,
			Inode:  e.Inode(),
		})
		return true
	})

	r.UsedBlocks = fs.blocks.Used()
	r.UsedInodes = fs.inodes.Used()
	r.OpenFiles = fs.files.Used()

	return r
}

// PrintStat writes the Stat report to w.
func (fs *FS) PrintStat(w io.Writer) error {
	_, err := fs.Stat().WriteTo(w)
	return err
}

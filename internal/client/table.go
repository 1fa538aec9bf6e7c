package client

import (
	"io"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/olekukonko/tablewriter"
)

// PrintFiles renders a listing as an aligned table.
func PrintFiles(w io.Writer, files []FileInfo) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Name", "Size", "Bytes", "Created"})
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(true)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("\t")
	for _, file := range files {
		table.Append([]string{
			file.Name,
			humanize.IBytes(uint64(file.Size)),
			strconv.FormatInt(file.Size, 10),
			file.CreatedAt.Local().Format(time.DateTime),
		})
	}
	table.Render()
}

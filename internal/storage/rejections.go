package storage

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/JonMunkholm/customer360/internal/core"
)

// RejectionsHeader is the first line of the rejection log.
const RejectionsHeader = "transaction_id\trejection_reason"

var idReplacer = strings.NewReplacer("\t", " ", "\r", " ", "\n", " ")

// WriteRejections writes one tab-separated line per rejection, in the order
// given. Tabs and line breaks inside IDs become spaces so each record stays
// on one line.
func WriteRejections(w io.Writer, rejections []core.Rejection) error {
	bw := bufio.NewWriter(w)
	if _, err := fmt.Fprintln(bw, RejectionsHeader); err != nil {
		return err
	}
	for _, r := range rejections {
		if _, err := fmt.Fprintf(bw, "%s\t%s\n", idReplacer.Replace(r.TransactionID), r.Reason); err != nil {
			return err
		}
	}
	return bw.Flush()
}

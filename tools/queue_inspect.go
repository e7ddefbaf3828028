// Command queue_inspect dumps the offline queue of a delivery-engine
// Badger store: one row per pending obligation, ordered as the engine
// would replay them. Opens the database read-only so it can run next to
// a live process.
package main

import (
	"chat-relay/repositories"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/dgraph-io/badger/v4"
	"github.com/olekukonko/tablewriter"
)

func main() {
	dbPath := flag.String("db", "", "Path to badger DB")
	prefix := flag.String("prefix", "queue:", "Prefix to scan (queue:<recipient>: narrows to one user)")
	flag.Parse()

	if *dbPath == "" {
		log.Fatal("Missing -db path")
	}

	db, err := badger.Open(badger.DefaultOptions(*dbPath).
		WithReadOnly(true).
		WithLogger(nil).
		WithBypassLockGuard(true))
	if err != nil {
		log.Fatal("Error while opening Badger: ", err)
	}
	defer db.Close()

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Recipient", "Message ID", "Sender", "Mode", "Sent At", "Content"})
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

	err = db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefixBytes := []byte(*prefix)
		for it.Seek(prefixBytes); it.ValidForPrefix(prefixBytes); it.Next() {
			item := it.Item()
			key := string(item.Key())
			if !strings.HasPrefix(key, "queue:") {
				continue
			}

			err := item.Value(func(v []byte) error {
				var dm repositories.DiskMessage
				if err := json.Unmarshal(v, &dm); err != nil {
					fmt.Printf("Error unmarshaling key %s: %v\n", key, err)
					return nil
				}

				recipient := dm.ReceiverID
				if parts := strings.SplitN(key, ":", 3); len(parts) == 3 {
					recipient = parts[1]
				}

				displayID := dm.ID.String()
				if len(displayID) > 8 {
					displayID = displayID[:8]
				}

				content := dm.Content
				if len(content) > 48 {
					content = content[:48] + "..."
				}

				table.Append([]string{
					recipient,
					displayID,
					dm.SenderID,
					dm.Mode,
					dm.SentAt.Format("15:04:05"),
					content,
				})
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		log.Fatal(err)
	}

	table.Render()
}

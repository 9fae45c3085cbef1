// Command inspect opens the message store read-only and prints its
// contents as a table. With -purge it opens read-write and drops every
// message record instead, the maintenance hammer for local
// environments.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/gookit/color"
	"github.com/olekukonko/tablewriter"
)

const messagePrefix = "msg:"

type diskMessage struct {
	ID        string            `json:"id"`
	From      string            `json:"from"`
	To        string            `json:"to"`
	Content   string            `json:"content"`
	FileURL   string            `json:"fileUrl,omitempty"`
	Timestamp int64             `json:"at"`
	Edited    bool              `json:"edited"`
	Delivered bool              `json:"delivered"`
	SeenBy    []string          `json:"seenBy"`
	Reactions map[string]string `json:"reactions"`
}

func main() {
	dbPath := flag.String("db", "./data/pulse", "Path to badger DB")
	purge := flag.Bool("purge", false, "Drop every stored message and index entry")
	flag.Parse()

	if *purge {
		if err := purgeMessages(*dbPath); err != nil {
			log.Fatal("Purge failed: ", err)
		}
		return
	}

	opts := badger.DefaultOptions(*dbPath).
		WithReadOnly(true).
		WithBypassLockGuard(true).
		WithLoggingLevel(badger.ERROR)
	db, err := badger.Open(opts)
	if err != nil {
		log.Fatal("Error while opening Badger: ", err)
	}
	defer db.Close()

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"ID", "From", "To", "At", "Content", "Flags", "Seen By", "Reactions"})
	table.SetAutoWrapText(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetBorder(false)

	count := 0
	err = db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefix := []byte(messagePrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			err := item.Value(func(v []byte) error {
				var m diskMessage
				if err := json.Unmarshal(v, &m); err != nil {
					fmt.Printf("Error unmarshaling key %s: %v\n", string(item.Key()), err)
					return nil
				}
				table.Append(toRow(m))
				count++
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		log.Fatal("Scan failed: ", err)
	}

	table.Render()
	color.Green.Printf("\n%d message(s)\n", count)
}

func toRow(m diskMessage) []string {
	var flags []string
	if m.Delivered {
		flags = append(flags, "delivered")
	}
	if m.Edited {
		flags = append(flags, "edited")
	}

	var reactions []string
	for user, emoji := range m.Reactions {
		reactions = append(reactions, fmt.Sprintf("%s:%s", user, emoji))
	}

	content := m.Content
	if content == "" && m.FileURL != "" {
		content = fmt.Sprintf("[file] %s", m.FileURL)
	}
	if len(content) > 60 {
		content = content[:57] + "..."
	}

	return []string{
		m.ID,
		m.From,
		m.To,
		time.Unix(0, m.Timestamp).UTC().Format(time.RFC3339),
		content,
		strings.Join(flags, ","),
		strings.Join(m.SeenBy, ","),
		strings.Join(reactions, " "),
	}
}

// purgeMessages drops both the records and the conversation index in
// one pass. Badger forbids mutating during iteration, so keys are
// collected first.
func purgeMessages(dbPath string) error {
	db, err := badger.Open(badger.DefaultOptions(dbPath).WithLoggingLevel(badger.ERROR))
	if err != nil {
		return err
	}
	defer db.Close()

	var keys [][]byte
	err = db.View(func(txn *badger.Txn) error {
		options := badger.DefaultIteratorOptions
		options.PrefetchValues = false
		it := txn.NewIterator(options)
		defer it.Close()

		for _, prefix := range []string{messagePrefix, "conv:"} {
			p := []byte(prefix)
			for it.Seek(p); it.ValidForPrefix(p); it.Next() {
				keys = append(keys, it.Item().KeyCopy(nil))
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	batch := db.NewWriteBatch()
	defer batch.Cancel()
	for _, key := range keys {
		if err := batch.Delete(key); err != nil {
			return err
		}
	}
	if err := batch.Flush(); err != nil {
		return err
	}

	color.Yellow.Printf("Purged %d key(s)\n", len(keys))
	return nil
}

package main

import (
	"fmt"
	"log"

	"github.com/yiblet/clipstash/internal/clip"
	"github.com/yiblet/clipstash/internal/config"
	"github.com/yiblet/clipstash/internal/ingest"
	"github.com/yiblet/clipstash/internal/store"
	"github.com/yiblet/clipstash/internal/store/memstore"
)

func main() {
	fmt.Println("clipstash Ingest Demo")

	// In-memory store with a small history so eviction is visible
	st := memstore.New()
	defer st.Close()

	cfg := config.DefaultConfig()
	cfg.HistoryLimit = 4
	cfg.IgnoredSources = []string{"com.example.vault"}
	pipeline := ingest.New(st, cfg)

	payloads := []*clip.Payload{
		clip.NewText("Hello, World! This is the first clip.", "com.example.editor"),
		clip.NewText("package main\n\nimport \"fmt\"\n\nfunc main() {\n    fmt.Println(\"Hello, Go!\")\n}", "com.example.editor"),
		clip.NewText("  Hello, World! This is the first clip.  ", "com.example.browser"),
		clip.NewText("s3cr3t", "com.example.vault"),
		{Kind: clip.KindText, Text: "123456", Transient: true},
		clip.NewText("SELECT * FROM users WHERE created_at > '2023-01-01' ORDER BY created_at DESC LIMIT 10;", "com.example.db"),
		clip.NewText("#!/bin/bash\necho \"Starting script...\"", "com.example.term"),
		clip.NewText("Lorem ipsum dolor sit amet, consectetur adipiscing elit.", ""),
	}

	fmt.Println("Ingesting clipboard changes:")
	for i, p := range payloads {
		res := pipeline.Ingest(p)
		fmt.Printf("%d. %-16s %s\n", i+1, res.Outcome, store.Truncate(store.SanitizeLine(string(p.Bytes())), 50))
	}

	// Pin the newest item so it survives any further eviction
	records, err := st.FetchPage(1, 0, store.OrderNewest)
	if err != nil {
		log.Fatalf("Failed to fetch items: %v", err)
	}
	if len(records) > 0 {
		st.SetPinned(records[0].ID, true)
	}

	records, err = st.FetchPage(0, 0, store.OrderPinnedFirst)
	if err != nil {
		log.Fatalf("Failed to fetch items: %v", err)
	}
	fmt.Printf("\nHistory (%d items, pinned first):\n", len(records))
	for _, r := range records {
		pin := " "
		if r.Pinned {
			pin = "*"
		}
		fmt.Printf("%s #%d [%s] %s\n", pin, r.ID, r.CreatedAt.Format("15:04:05"), r.Preview(50))
	}

	matches, err := st.Search("hello", 0, 0)
	if err != nil {
		log.Fatalf("Search failed: %v", err)
	}
	fmt.Printf("\nSearch \"hello\": %d match(es)\n", len(matches))

	fmt.Printf("\nDemo complete! (Using in-memory store)\n")
}

// prefcheck prints the stored preferences of a user, looked up by email.
//
//	prefcheck ada@example.com
//	prefcheck -subscribers
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/tazhibayda/dailyjobs/internal/config"
	"github.com/tazhibayda/dailyjobs/internal/domain"
	"github.com/tazhibayda/dailyjobs/internal/repo"
)

func main() {
	subscribers := flag.Bool("subscribers", false, "list every verified user with at least one company")
	flag.Parse()
	if !*subscribers && flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: prefcheck <email> | prefcheck -subscribers")
		os.Exit(2)
	}

	cfg := config.Load()
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	store, err := repo.NewStore(ctx, cfg.MongoURI, cfg.MongoDB)
	if err != nil {
		fmt.Fprintf(os.Stderr, "mongo connect: %v\n", err)
		os.Exit(1)
	}
	defer store.Close(context.Background())

	var recs []domain.Record
	if *subscribers {
		recs, err = store.ListSubscribers(ctx)
	} else {
		recs, err = store.FindRecordByEmail(ctx, flag.Arg(0))
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "query: %v\n", err)
		os.Exit(1)
	}
	if len(recs) == 0 {
		fmt.Println("no matching users")
		return
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	for _, r := range recs {
		if err := enc.Encode(r); err != nil {
			fmt.Fprintf(os.Stderr, "encode: %v\n", err)
			os.Exit(1)
		}
	}
}

// Command tail subscribes to a fraudlens stream and prints each insight as
// a single line, exercising the public stream client end to end.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"fraudlens/internal/domain"
	"fraudlens/pkg/streamclient"
)

func main() {
	url := flag.String("url", "http://localhost:8080/ws", "stream endpoint")
	flag.Parse()

	log := slog.New(slog.NewTextHandler(os.Stderr, nil))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client := streamclient.New(*url, func(ins domain.Insight) {
		fmt.Printf("%s  %-12s  %.2f  %-24s  $%.2f  %s\n",
			ins.TS, ins.Risk, ins.Score, ins.MerchantName, ins.Amount, ins.Explanation)
	}, streamclient.WithLogger(log))

	if err := client.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("stream consumer stopped", "error", err)
		os.Exit(1)
	}
}

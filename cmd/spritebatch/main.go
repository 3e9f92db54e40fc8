// Command spritebatch exercises the dataset and webcam helpers from the
// command line: it loads the sprited MNIST dataset and draws batches from it,
// or captures a normalized frame from a local camera.
//
// Usage:
//
//	spritebatch batches --batch-size 64 --steps 10 --plot plots/classes.png
//	spritebatch capture --device 0 --size 224 --out frame.png
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"k8s.io/klog/v2"
)

func main() {
	klog.InitFlags(nil)
	defer klog.Flush()

	rootCmd := &cobra.Command{
		Use:           "spritebatch",
		Short:         "Serve MNIST sprite batches and webcam frames",
		SilenceUsage:  true,
		SilenceErrors: true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
	}
	rootCmd.PersistentFlags().AddGoFlagSet(flag.CommandLine)
	rootCmd.AddCommand(newBatchesCmd(), newCaptureCmd())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		klog.Errorf("%v", err)
		stop()
		klog.Flush()
		os.Exit(1)
	}
}

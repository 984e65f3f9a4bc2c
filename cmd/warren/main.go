package main

import (
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/cuemby/nodemapd/pkg/log"
	"github.com/cuemby/nodemapd/pkg/manager"
	"github.com/cuemby/nodemapd/pkg/metrics"
	"github.com/cuemby/nodemapd/pkg/nodemap"
	"github.com/spf13/cobra"
)

var (
	// Version information (set via ldflags during build)
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "warren",
	Short:   "Warren - cluster manager for the node-map serialization core",
	Version: Version,
}

func init() {
	rootCmd.SetVersionTemplate(fmt.Sprintf(
		"Warren version %s\nCommit: %s\nBuilt: %s\n",
		Version, Commit, BuildTime,
	))

	rootCmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Bool("log-json", false, "Output logs in JSON format")

	cobra.OnInitialize(initLogging)

	rootCmd.AddCommand(clusterCmd)
	rootCmd.AddCommand(nodeCmd)
	rootCmd.AddCommand(nodemapCmd)
}

func initLogging() {
	logLevel, _ := rootCmd.PersistentFlags().GetString("log-level")
	logJSON, _ := rootCmd.PersistentFlags().GetBool("log-json")

	log.Init(log.Config{
		Level:      log.Level(logLevel),
		JSONOutput: logJSON,
	})
}

// Cluster commands

var clusterCmd = &cobra.Command{
	Use:   "cluster",
	Short: "Manage a Warren cluster",
}

var clusterInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize a new cluster with this node as master",
	Long: `Initialize a new Warren cluster with this node as the allocation's
master. This node owns the node pool rather than decoding it from a peer,
and starts a single-node Raft quorum that additional managers can join.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		nodeID, _ := cmd.Flags().GetString("node-id")
		bindAddr, _ := cmd.Flags().GetString("bind-addr")
		dataDir, _ := cmd.Flags().GetString("data-dir")
		metricsAddr, _ := cmd.Flags().GetString("metrics-addr")

		fmt.Println("Initializing Warren cluster...")
		fmt.Printf("  Node ID: %s\n", nodeID)
		fmt.Printf("  Raft Address: %s\n", bindAddr)
		fmt.Printf("  Data Directory: %s\n", dataDir)

		mgr, err := manager.NewManager(&manager.Config{
			NodeID:   nodeID,
			BindAddr: bindAddr,
			DataDir:  dataDir,
			IsMaster: true,
		})
		if err != nil {
			return fmt.Errorf("failed to create manager: %w", err)
		}

		if err := mgr.Bootstrap(); err != nil {
			return fmt.Errorf("failed to bootstrap cluster: %w", err)
		}

		if metricsAddr != "" {
			startMetricsServer(metricsAddr)
		}

		collector := manager.NewMetricsCollector(mgr)
		collector.Start()

		fmt.Println("✓ Cluster initialized")
		waitForShutdown(mgr)
		return nil
	},
}

var clusterJoinCmd = &cobra.Command{
	Use:   "join <leader-addr>",
	Short: "Join an existing cluster",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		nodeID, _ := cmd.Flags().GetString("node-id")
		bindAddr, _ := cmd.Flags().GetString("bind-addr")
		dataDir, _ := cmd.Flags().GetString("data-dir")
		token, _ := cmd.Flags().GetString("token")

		mgr, err := manager.NewManager(&manager.Config{
			NodeID:   nodeID,
			BindAddr: bindAddr,
			DataDir:  dataDir,
		})
		if err != nil {
			return fmt.Errorf("failed to create manager: %w", err)
		}

		if err := mgr.Join(args[0], token); err != nil {
			return fmt.Errorf("failed to join cluster: %w", err)
		}

		fmt.Println("✓ Successfully joined cluster")
		collector := manager.NewMetricsCollector(mgr)
		collector.Start()
		waitForShutdown(mgr)
		return nil
	},
}

func init() {
	clusterInitCmd.Flags().String("node-id", "manager-1", "Unique node identifier")
	clusterInitCmd.Flags().String("bind-addr", "127.0.0.1:7000", "Raft bind address")
	clusterInitCmd.Flags().String("data-dir", "/var/lib/warren", "Data directory")
	clusterInitCmd.Flags().String("metrics-addr", "", "Prometheus metrics listen address (empty disables)")

	clusterJoinCmd.Flags().String("node-id", "", "Unique node identifier")
	clusterJoinCmd.Flags().String("bind-addr", "127.0.0.1:7000", "Raft bind address")
	clusterJoinCmd.Flags().String("data-dir", "/var/lib/warren", "Data directory")
	clusterJoinCmd.Flags().String("token", "", "Join token issued by the cluster leader")
	_ = clusterJoinCmd.MarkFlagRequired("node-id")
	_ = clusterJoinCmd.MarkFlagRequired("token")

	clusterCmd.AddCommand(clusterInitCmd)
	clusterCmd.AddCommand(clusterJoinCmd)
}

// Node commands

var nodeCmd = &cobra.Command{
	Use:   "node",
	Short: "Inspect the node pool",
}

var nodeListCmd = &cobra.Command{
	Use:   "list",
	Short: "List nodes in the pool",
	RunE: func(cmd *cobra.Command, _ []string) error {
		dataDir, _ := cmd.Flags().GetString("data-dir")
		mgr, err := manager.NewManager(&manager.Config{DataDir: dataDir})
		if err != nil {
			return err
		}
		defer mgr.Shutdown()

		nodes, err := mgr.ListNodes()
		if err != nil {
			return err
		}

		fmt.Printf("%-6s %-20s %-8s %-6s %s\n", "INDEX", "NAME", "SLOTS", "GIVEN", "DAEMON")
		for _, nd := range nodes {
			daemon := "-"
			if nd.Daemon != nil {
				daemon = fmt.Sprintf("%d", nd.Daemon.Vpid)
			}
			fmt.Printf("%-6d %-20s %-8d %-6t %s\n", nd.Index, nd.Name, nd.Slots, nd.SlotsGiven, daemon)
		}
		return nil
	},
}

func init() {
	nodeListCmd.Flags().String("data-dir", "/var/lib/warren", "Data directory")
	nodeCmd.AddCommand(nodeListCmd)
}

// Nodemap commands

var nodemapCmd = &cobra.Command{
	Use:   "nodemap",
	Short: "Inspect the node-map wire codec",
}

var nodemapDumpCmd = &cobra.Command{
	Use:   "dump <file>",
	Short: "Decode and print a NIDMAP message from a file",
	Args:  cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		raw, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", args[0], err)
		}

		buf := nodemap.NewBuffer()
		buf.Load(raw)
		comp := nodemap.NewCompressor()

		rt := nodemap.NewRuntime()
		// DecodeNIDMAP needs a registered topology to assign to the
		// decoded nodes; a placeholder stands in for it here.
		rt.Topologies.Register("", nil)
		if err := nodemap.DecodeNIDMAP(rt, buf, comp); err != nil {
			return fmt.Errorf("failed to decode NIDMAP: %w", err)
		}

		for _, nd := range rt.Pool.Present() {
			daemon := "-"
			if nd.Daemon != nil {
				daemon = fmt.Sprintf("%d", nd.Daemon.Vpid)
			}
			fmt.Printf("node %d: %s daemon=%s\n", nd.Index, nd.Name, daemon)
		}
		return nil
	},
}

func init() {
	nodemapCmd.AddCommand(nodemapDumpCmd)
}

func startMetricsServer(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	go func() {
		if err := http.ListenAndServe(addr, mux); err != nil && err != http.ErrServerClosed {
			log.Errorf("metrics server stopped", err)
		}
	}()
}

func waitForShutdown(mgr *manager.Manager) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	fmt.Println("Shutting down...")
	if err := mgr.Shutdown(); err != nil {
		fmt.Fprintf(os.Stderr, "Error during shutdown: %v\n", err)
	}
}

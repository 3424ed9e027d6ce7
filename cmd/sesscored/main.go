package main

import (
	"io"
	"net/http"
	"os"
	"runtime"
	"time"

	_ "net/http/pprof"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"
	"github.com/google/gopacket/tcpassembly"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/arkime-go/sesscore/config"
	"github.com/arkime-go/sesscore/engine"
	"github.com/arkime-go/sesscore/engine/gopacketreader"
	"github.com/arkime-go/sesscore/magic"
	"github.com/arkime-go/sesscore/session"
	"github.com/arkime-go/sesscore/sink/bulk"
)

func main() {
	var (
		flags    config.Flags
		debug    bool
		pprof    bool
		httpAddr string
		kafka    []string
		topic    string
		bulkURL  string
		spoolDir string
		pcapFile string
	)

	root := &cobra.Command{
		Use:           "sesscored",
		Short:         "passive session analysis daemon",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			log.Logger = zerolog.New(zerolog.ConsoleWriter{
				Out:        os.Stdout,
				TimeFormat: "2006-01-02 15:04:05.000",
			}).With().Timestamp().Logger().Level(zerolog.InfoLevel)
			if debug {
				log.Logger = log.Logger.Level(zerolog.DebugLevel)
			}
		},
	}
	root.PersistentFlags().BoolVar(&debug, "debug", false, "")

	run := &cobra.Command{
		Use:   "run",
		Short: "start the analysis engine and metrics endpoint",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := flags.Validate()
			if err != nil {
				return err
			}

			if pprof {
				runtime.SetBlockProfileRate(1)
				runtime.SetMutexProfileFraction(1)
				runtime.MemProfileRate = 64
			}

			sink, err := buildSink(kafka, topic, bulkURL, spoolDir)
			if err != nil {
				return err
			}

			opts := []engine.Option{
				engine.WithTyper(magic.NewResolver(cfg.MagicMode, magic.NewLibrary())),
				engine.WithExtraOps(cfg.ExtraOps),
			}
			if sink != nil {
				opts = append(opts, engine.WithBatcher(bulk.NewBatcher(sink, cfg.BulkMode, false)))
			}
			e := engine.New(opts...)
			e.RegisterBuiltin(cfg)

			log.Info().Int("cpus", runtime.NumCPU()).Msg("Runtime")
			log.Info().Msg("Dissectors registered")

			if pcapFile != "" {
				if err := processPcap(e, pcapFile); err != nil {
					return err
				}
				e.Flush()
			}

			httpServer(httpAddr)
			return nil
		},
	}
	flags.Bind(run)
	run.Flags().BoolVar(&pprof, "pprof", false, "Full profile")
	run.Flags().StringVar(&httpAddr, "http", ":8080", "metrics/health listen address")
	run.Flags().StringSliceVar(&kafka, "kafkaBrokers", nil, "kafka brokers for the bulk sink")
	run.Flags().StringVar(&topic, "kafkaTopic", "sessions", "kafka topic for the bulk sink")
	run.Flags().StringVar(&bulkURL, "bulkURL", "", "HTTP bulk endpoint")
	run.Flags().StringVar(&spoolDir, "spoolDir", "", "local doc-mode spool directory")
	run.Flags().StringVar(&pcapFile, "r", "", "pcap file to read and analyze")

	check := &cobra.Command{
		Use:   "check",
		Short: "validate configuration and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := flags.Validate()
			if err == nil {
				log.Info().Msg("configuration ok")
			}
			return err
		},
	}
	flags.Bind(check)

	cfgCmd := &cobra.Command{Use: "config", Short: "configuration helpers"}
	cfgCmd.AddCommand(check)
	root.AddCommand(run, cfgCmd)

	if err := root.Execute(); err != nil {
		log.Error().Err(err).Msg("startup failed")
		os.Exit(1)
	}
}

// buildSink picks the one configured bulk transport; at most one may
// be set.
func buildSink(brokers []string, topic, url, spool string) (session.BulkSink, error) {
	set := 0
	if len(brokers) > 0 {
		set++
	}
	if url != "" {
		set++
	}
	if spool != "" {
		set++
	}
	if set > 1 {
		return nil, errTooManySinks
	}
	switch {
	case len(brokers) > 0:
		return bulk.NewKafkaSink(brokers, topic)
	case url != "":
		return bulk.NewHTTPSink(url, 30*time.Second), nil
	case spool != "":
		return bulk.NewDocSink(spool), nil
	default:
		return nil, nil
	}
}

var errTooManySinks = &configError{"at most one of kafkaBrokers, bulkURL, spoolDir may be set"}

type configError struct{ msg string }

func (e *configError) Error() string { return e.msg }

// processPcap replays a capture file through the tcpassembly-backed
// reader adapter, the same path a live reader would drive.
func processPcap(e *engine.Engine, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	r, err := pcapgo.NewReader(f)
	if err != nil {
		return err
	}

	factory := &gopacketreader.Factory{Engine: e}
	pool := tcpassembly.NewStreamPool(factory)
	asm := tcpassembly.NewAssembler(pool)

	packets := 0
	for {
		data, ci, err := r.ReadPacketData()
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}
		packets++
		pkt := gopacket.NewPacket(data, r.LinkType(), gopacket.Default)
		tcpLayer := pkt.Layer(layers.LayerTypeTCP)
		if tcpLayer == nil || pkt.NetworkLayer() == nil {
			continue
		}
		asm.AssembleWithTimestamp(pkt.NetworkLayer().NetworkFlow(), tcpLayer.(*layers.TCP), ci.Timestamp)
	}
	asm.FlushAll()
	log.Info().Int("packets", packets).Str("file", path).Msg("capture replay complete")
	return nil
}

func httpServer(address string) {
	http.Handle("/metrics", promhttp.Handler())
	http.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(200)
		w.Write([]byte("Alive"))
	})

	log.Info().Msgf("Http server started address=%s", address)
	http.ListenAndServe(address, nil)
}

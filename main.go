package main

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"time"

	"github.com/alwitt/clipsync/bin"
	"github.com/alwitt/clipsync/common"
	"github.com/apex/log"
	apexJSON "github.com/apex/log/handlers/json"
	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
	"github.com/urfave/cli/v2"
)

type agentNodeCliArgs struct {
	ConfigFile string `validate:"required,file"`
	DBPassword string
}

type cliArgs struct {
	JSONLog  bool
	LogLevel string `validate:"required,oneof=debug info warn error"`
	Hostname string
}

var s3CredsArgs common.S3Credentials

var agentNodeArgs agentNodeCliArgs

var cmdArgs cliArgs

var logTags log.Fields

// @title clipsync
// @version v0.1.0
// @description Video repository sync agent

// @host localhost:8080
// @BasePath /
// @query.collection.format multi
func main() {
	hostname, err := os.Hostname()
	if err != nil {
		log.WithError(err).Fatal("Unable to read hostname")
	}
	cmdArgs.Hostname = hostname
	logTags = log.Fields{
		"module":    "main",
		"component": "main",
		"instance":  hostname,
	}

	app := &cli.App{
		Version:     "v0.1.0",
		Usage:       "application entrypoint",
		Description: "Sync agent mirroring a local video repository against a remote host",
		Flags: []cli.Flag{
			// LOGGING
			&cli.BoolFlag{
				Name:        "json-log",
				Usage:       "Whether to log in JSON format",
				Aliases:     []string{"j"},
				EnvVars:     []string{"LOG_AS_JSON"},
				Value:       false,
				DefaultText: "false",
				Destination: &cmdArgs.JSONLog,
				Required:    false,
			},
			&cli.StringFlag{
				Name:        "log-level",
				Usage:       "Logging level: [debug info warn error]",
				Aliases:     []string{"l"},
				EnvVars:     []string{"LOG_LEVEL"},
				Value:       "warn",
				DefaultText: "warn",
				Destination: &cmdArgs.LogLevel,
				Required:    false,
			},
			// S3 Creds
			&cli.StringFlag{
				Name:        "s3-access-key",
				Usage:       "S3 user access key, if an S3 blob host is configured",
				EnvVars:     []string{"AWS_ACCESS_KEY_ID"},
				Value:       "",
				DefaultText: "",
				Destination: &s3CredsArgs.AccessKey,
				Required:    false,
			},
			&cli.StringFlag{
				Name:        "s3-secret-access-key",
				Usage:       "S3 user secret access key, if an S3 blob host is configured",
				EnvVars:     []string{"AWS_SECRET_ACCESS_KEY"},
				Value:       "",
				DefaultText: "",
				Destination: &s3CredsArgs.SecretAccessKey,
				Required:    false,
			},
		},
		Commands: []*cli.Command{
			{
				Name:        "agent",
				Usage:       "Run video repository sync agent node",
				Description: "Start the sync agent node and its API servers.",
				Flags: []cli.Flag{
					// Config file
					&cli.StringFlag{
						Name:        "config-file",
						Usage:       "Application config file",
						Aliases:     []string{"c"},
						EnvVars:     []string{"CONFIG_FILE"},
						Destination: &agentNodeArgs.ConfigFile,
						Required:    true,
					},
					&cli.StringFlag{
						Name:        "db-password",
						Usage:       "Database user password, if a Postgres ledger is used",
						Aliases:     []string{"p"},
						EnvVars:     []string{"DB_USER_PASSWORD"},
						Value:       "",
						DefaultText: "",
						Destination: &agentNodeArgs.DBPassword,
						Required:    false,
					},
				},
				Action: startAgentNode,
			},
		},
	}

	err = app.Run(os.Args)
	if err != nil {
		log.WithError(err).WithFields(logTags).Fatal("Program shutdown")
	}
}

// setupLogging helper function to prepare the app logging
func setupLogging() {
	if cmdArgs.JSONLog {
		log.SetHandler(apexJSON.New(os.Stderr))
	}
	switch cmdArgs.LogLevel {
	case "debug":
		log.SetLevel(log.DebugLevel)
	case "info":
		log.SetLevel(log.InfoLevel)
	case "warn":
		log.SetLevel(log.WarnLevel)
	case "error":
		log.SetLevel(log.ErrorLevel)
	default:
		log.SetLevel(log.ErrorLevel)
	}
}

func startAgentNode(c *cli.Context) error {
	validate := validator.New()

	// Validate general config
	if err := validate.Struct(&cmdArgs); err != nil {
		return err
	}

	setupLogging()

	// ================================================================================
	// Process sync agent node config
	if err := validate.Struct(&agentNodeArgs); err != nil {
		log.
			WithError(err).
			WithFields(logTags).
			Error("Invalid parameters provided to start sync agent node")
		return err
	}

	// Process the config file
	common.InstallDefaultAgentNodeConfigValues()
	var configs common.AgentNodeConfig
	viper.SetConfigFile(agentNodeArgs.ConfigFile)
	if err := viper.ReadInConfig(); err != nil {
		log.WithError(err).WithFields(logTags).Error("Failed to load sync agent node config")
		return err
	}
	if err := viper.Unmarshal(&configs); err != nil {
		log.WithError(err).WithFields(logTags).Error("Failed to parse sync agent node config")
		return err
	}

	// Validate sync agent node config
	if err := validate.Struct(&configs); err != nil {
		log.WithError(err).WithFields(logTags).Error("Sync agent node config file is not valid")
		return err
	}

	{
		t, _ := json.MarshalIndent(&configs, "", "  ")
		log.WithFields(logTags).Debugf("Running with config:\n%s", string(t))
	}

	// ================================================================================
	// Define sync agent node

	runtimeCtxt, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Pass the S3 creds through to any S3 blob host without its own
	if s3CredsArgs.AccessKey != "" {
		for idx, hostConfig := range configs.BlobHosts {
			if hostConfig.Type == "s3" && hostConfig.S3 != nil && hostConfig.S3.Creds == nil {
				configs.BlobHosts[idx].S3.Creds = &s3CredsArgs
			}
		}
	}

	agentNode, err := bin.DefineAgentNode(
		runtimeCtxt, cmdArgs.Hostname, configs, agentNodeArgs.DBPassword,
	)
	if err != nil {
		log.WithError(err).WithFields(logTags).Error("Unable to define and start sync agent node")
		return err
	}
	defer func() {
		if err := agentNode.Cleanup(runtimeCtxt); err != nil {
			log.WithError(err).WithFields(logTags).Error("Failure during sync agent clean up")
		}
	}()

	// ================================================================================
	// Start HTTP servers

	wg := sync.WaitGroup{}
	defer wg.Wait()
	apiServers := map[string]*http.Server{}

	defer func() {
		// Shutdown the servers
		for svrInstance, svr := range apiServers {
			ctx, cancel := context.WithTimeout(runtimeCtxt, time.Second*10)
			if err := svr.Shutdown(ctx); err != nil {
				log.
					WithError(err).
					WithFields(logTags).
					Errorf("Failure during HTTP Server %s shutdown", svrInstance)
			}
			cancel()
		}
	}()

	// Start sync API HTTP server
	{
		svr := agentNode.APIServer
		apiServers["sync-api"] = svr
		// Start the server
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := svr.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.WithError(err).Error("Sync API HTTP server failure")
			}
		}()
	}
	// Start metrics HTTP server
	{
		svr := agentNode.MetricsServer
		apiServers["metrics-api"] = svr
		// Start the server
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := svr.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.WithError(err).Error("Metrics API HTTP server failure")
			}
		}()
	}

	// ------------------------------------------------------------------------------------
	// Wait for termination

	cc := make(chan os.Signal, 1)
	// We'll accept graceful shutdowns when quit via SIGINT (Ctrl+C)
	// SIGKILL, SIGQUIT or SIGTERM (Ctrl+/) will not be caught.
	signal.Notify(cc, os.Interrupt)
	<-cc

	return nil
}

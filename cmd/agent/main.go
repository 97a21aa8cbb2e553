// Command voice-agent runs the Gemini-backed voice agent.
//
// Usage:
//
//	voice-agent serve               # join LIVEKIT_ROOMS and serve /health, /ready, /metrics
//	voice-agent transcribe <file>   # one-shot speech-to-text
//	voice-agent speak <text>        # one-shot text-to-speech
//	voice-agent prompt <text>       # one-shot language model call
//	voice-agent version
package main

import (
	"fmt"
	"os"

	"github.com/lexiqai/voice-agent/internal/config"
)

// Set at build time.
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "serve":
		runServe(os.Args[2:])
	case "transcribe":
		runTranscribe(os.Args[2:])
	case "speak":
		runSpeak(os.Args[2:])
	case "prompt":
		runPrompt(os.Args[2:])
	case "version":
		printVersion()
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

// loadConfig exits before anything else is built when the configuration is
// unusable, most commonly because GEMINI_API_KEY is missing.
func loadConfig() *config.Config {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	return cfg
}

func printVersion() {
	fmt.Printf("voice-agent %s (commit %s, built %s)\n", Version, GitCommit, BuildTime)
}

func printUsage() {
	fmt.Fprint(os.Stderr, `Usage: voice-agent <command> [arguments]

Commands:
  serve               Join the configured LiveKit rooms and run the agent
  transcribe <file>   Send an audio file to the speech-to-text endpoint
  speak <text>        Send text to the text-to-speech endpoint
  prompt <text>       Send a prompt to the language model endpoint
  version             Print version information
`)
}

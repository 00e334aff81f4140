package main

import (
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// releaseVersion is set via ldflags during build
var releaseVersion = "dev"

// GetVersion returns the current release version
func GetVersion() string {
	return releaseVersion
}

var rootCmd = &cobra.Command{
	Use:   "intprep",
	Short: "IntPrep interview question generator",
	Long: "IntPrep serves a form that turns a role, seniority and question style into " +
		"interview questions streamed from Groq, falling back across candidate models.",
	SilenceUsage: true,
}

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

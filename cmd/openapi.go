package cmd

import (
	"context"
	"fmt"
	"log"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/spf13/cobra"
)

var openapiSpecPath string

var openapiCmd = &cobra.Command{
	Use:   "openapi",
	Short: "OpenAPI spec utilities",
}

var openapiValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the OpenAPI spec",
	Long:  `Load and validate the OpenAPI document served to API consumers.`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()

		loader := &openapi3.Loader{Context: ctx, IsExternalRefsAllowed: true}
		doc, err := loader.LoadFromFile(openapiSpecPath)
		if err != nil {
			log.Fatalf("failed to load OpenAPI spec %s: %v", openapiSpecPath, err)
		}

		if err := doc.Validate(ctx); err != nil {
			log.Fatalf("OpenAPI spec is invalid: %v", err)
		}

		fmt.Printf("OpenAPI spec %s is valid: %s (%d paths)\n", openapiSpecPath, doc.Info.Title, doc.Paths.Len())
	},
}

func init() {
	openapiValidateCmd.Flags().StringVar(&openapiSpecPath, "spec", "api/openapi.yml", "Path to the OpenAPI document")

	openapiCmd.AddCommand(openapiValidateCmd)
	rootCmd.AddCommand(openapiCmd)
}

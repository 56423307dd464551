package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/openmeteo/enhydris-api-client/pkg/enhydris"
)

var (
	modelFields  []string
	modelPartial bool
)

func init() {
	modelCmd := &cobra.Command{
		Use:   "model",
		Short: "Generic CRUD on api/{model}/ endpoints",
	}

	getCmd := &cobra.Command{
		Use:   "get <model> <id>",
		Short: "Fetch one object and print it as JSON",
		Args:  cobra.ExactArgs(2),
		RunE:  runModelGet,
	}

	createCmd := &cobra.Command{
		Use:   "create <model>",
		Short: "Create an object from -d key=value fields, print its id",
		Args:  cobra.ExactArgs(1),
		RunE:  runModelCreate,
	}
	createCmd.Flags().StringArrayVarP(&modelFields, "data", "d", nil, "field as key=value (repeatable)")

	updateCmd := &cobra.Command{
		Use:   "update <model> <id>",
		Short: "Rewrite an object from -d key=value fields (PUT, or PATCH with --partial)",
		Args:  cobra.ExactArgs(2),
		RunE:  runModelUpdate,
	}
	updateCmd.Flags().StringArrayVarP(&modelFields, "data", "d", nil, "field as key=value (repeatable)")
	updateCmd.Flags().BoolVar(&modelPartial, "partial", false, "send PATCH instead of PUT")

	deleteCmd := &cobra.Command{
		Use:   "delete <model> <id>",
		Short: "Delete an object (server must answer 204)",
		Args:  cobra.ExactArgs(2),
		RunE:  runModelDelete,
	}

	modelCmd.AddCommand(getCmd, createCmd, updateCmd, deleteCmd)
	rootCmd.AddCommand(modelCmd)
}

func runModelGet(cmd *cobra.Command, args []string) error {
	id, err := strconv.Atoi(args[1])
	if err != nil {
		return fmt.Errorf("invalid id %q", args[1])
	}
	return withClient(func(ctx context.Context, client *enhydris.Client) error {
		obj, err := client.Models.Get(ctx, args[0], id)
		if err != nil {
			return err
		}
		out, err := json.MarshalIndent(obj, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(out))
		return nil
	})
}

func runModelCreate(cmd *cobra.Command, args []string) error {
	fields, err := parseFields(modelFields)
	if err != nil {
		return err
	}
	return withClient(func(ctx context.Context, client *enhydris.Client) error {
		id, err := client.Models.Create(ctx, args[0], fields)
		if err != nil {
			return err
		}
		fmt.Println(id)
		return nil
	})
}

func runModelUpdate(cmd *cobra.Command, args []string) error {
	id, err := strconv.Atoi(args[1])
	if err != nil {
		return fmt.Errorf("invalid id %q", args[1])
	}
	fields, err := parseFields(modelFields)
	if err != nil {
		return err
	}
	return withClient(func(ctx context.Context, client *enhydris.Client) error {
		return client.Models.Update(ctx, args[0], id, fields, modelPartial)
	})
}

func runModelDelete(cmd *cobra.Command, args []string) error {
	id, err := strconv.Atoi(args[1])
	if err != nil {
		return fmt.Errorf("invalid id %q", args[1])
	}
	return withClient(func(ctx context.Context, client *enhydris.Client) error {
		return client.Models.Delete(ctx, args[0], id)
	})
}

func parseFields(kvs []string) (url.Values, error) {
	fields := url.Values{}
	for _, kv := range kvs {
		key, val, ok := strings.Cut(kv, "=")
		if !ok {
			return nil, fmt.Errorf("field %q is not key=value", kv)
		}
		fields.Add(key, val)
	}
	return fields, nil
}

package document

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ed-fi-alliance-oss/meadowlark/pkg/commands"
)

type upsertOutput struct {
	Created bool    `json:"created"`
	Record  *Record `json:"record"`
}

type updateOutput struct {
	Cascaded int     `json:"cascaded"`
	Record   *Record `json:"record"`
}

func newUpsertCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "upsert",
		Short: "Insert a document, or replace the document with the same identity",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := openSession(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			doc, err := readDocument(cmd)
			if err != nil {
				return err
			}

			resp, err := commands.NewUpsertCommand(s.schema, s.datastore, s.opts...).Execute(cmd.Context(), &commands.UpsertRequest{
				ResourceRequest: s.resource,
				Document:        doc,
			})
			if err != nil {
				return err
			}
			return writeJSON(cmd, &upsertOutput{Created: resp.Created, Record: recordOf(resp.Record)})
		},
	}
	cmd.Flags().String(documentFlag, "-", "path of the JSON document, '-' reads standard input")
	return cmd
}

func newUpdateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "update",
		Short: "Replace a document by id, rewriting the documents that reference it when its identity changes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			id, err := requireID(cmd)
			if err != nil {
				return err
			}
			s, err := openSession(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			doc, err := readDocument(cmd)
			if err != nil {
				return err
			}

			resp, err := commands.NewUpdateCommand(s.schema, s.datastore, s.opts...).Execute(cmd.Context(), &commands.UpdateRequest{
				ResourceRequest: s.resource,
				DocumentUUID:    id,
				Document:        doc,
			})
			if err != nil {
				return err
			}
			return writeJSON(cmd, &updateOutput{Cascaded: resp.Cascaded, Record: recordOf(resp.Record)})
		},
	}
	cmd.Flags().String(idFlag, "", "(required) the id of the document")
	cmd.Flags().String(documentFlag, "-", "path of the JSON document, '-' reads standard input")
	return cmd
}

func newGetCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "get",
		Short: "Print a document by id",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			id, err := requireID(cmd)
			if err != nil {
				return err
			}
			s, err := openSession(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			record, err := commands.NewGetCommand(s.schema, s.datastore, s.opts...).Execute(cmd.Context(), &commands.GetRequest{
				ResourceRequest: s.resource,
				DocumentUUID:    id,
			})
			if err != nil {
				return err
			}
			return writeJSON(cmd, recordOf(record))
		},
	}
	cmd.Flags().String(idFlag, "", "(required) the id of the document")
	return cmd
}

func newDeleteCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete",
		Short: "Delete a document no other document references",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			id, err := requireID(cmd)
			if err != nil {
				return err
			}
			s, err := openSession(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			err = commands.NewDeleteCommand(s.schema, s.datastore, s.opts...).Execute(cmd.Context(), &commands.DeleteRequest{
				ResourceRequest: s.resource,
				DocumentUUID:    id,
			})
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", id)
			return err
		},
	}
	cmd.Flags().String(idFlag, "", "(required) the id of the document")
	return cmd
}

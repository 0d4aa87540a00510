// Command lexgo converts word-vector files and moves saved lexicon models
// between local disk and blob storage.
package main

import (
	"context"
	"fmt"
	"os"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	miniogo "github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/spf13/cobra"

	"github.com/hupe1980/lexgo"
	"github.com/hupe1980/lexgo/blobstore"
	minioblob "github.com/hupe1980/lexgo/blobstore/minio"
	s3blob "github.com/hupe1980/lexgo/blobstore/s3"
	"github.com/hupe1980/lexgo/persistence"
)

type storeFlags struct {
	bucket    string
	prefix    string
	endpoint  string
	accessKey string
	secretKey string
	insecure  bool
}

func (f *storeFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.bucket, "bucket", "", "bucket name (required)")
	cmd.Flags().StringVar(&f.prefix, "prefix", "", "key prefix inside the bucket")
	cmd.Flags().StringVar(&f.endpoint, "endpoint", "", "S3-compatible endpoint; empty selects AWS S3")
	cmd.Flags().StringVar(&f.accessKey, "access-key", "", "access key for --endpoint")
	cmd.Flags().StringVar(&f.secretKey, "secret-key", "", "secret key for --endpoint")
	cmd.Flags().BoolVar(&f.insecure, "insecure", false, "plain HTTP for --endpoint")
	_ = cmd.MarkFlagRequired("bucket")
}

func (f *storeFlags) baseURI() string {
	if f.prefix == "" {
		return "s3://" + f.bucket
	}
	return "s3://" + f.bucket + "/" + f.prefix
}

func (f *storeFlags) open(ctx context.Context) (blobstore.BlobStore, error) {
	if f.endpoint != "" {
		client, err := miniogo.New(f.endpoint, &miniogo.Options{
			Creds:  credentials.NewStaticV4(f.accessKey, f.secretKey, ""),
			Secure: !f.insecure,
		})
		if err != nil {
			return nil, fmt.Errorf("minio client: %w", err)
		}
		return minioblob.NewStore(client, f.bucket, f.prefix), nil
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("aws config: %w", err)
	}
	return s3blob.NewStore(awss3.NewFromConfig(cfg), f.bucket, f.prefix), nil
}

func newVectorsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "vectors",
		Short: "Work with word-vector files",
	}
	cmd.AddCommand(newVectorsConvertCmd(), newVectorsDumpCmd())
	return cmd
}

func newVectorsConvertCmd() *cobra.Command {
	var src, dst string

	cmd := &cobra.Command{
		Use:   "convert",
		Short: "Convert a text vector file (.txt, .gz, .lz4) to the binary format",
		RunE: func(cmd *cobra.Command, args []string) error {
			count, err := lexgo.ConvertVectors(src, dst)
			if err != nil {
				return err
			}
			cmd.Printf("wrote %d vectors to %s\n", count, dst)
			return nil
		},
	}
	cmd.Flags().StringVar(&src, "src", "", "text vector source (required)")
	cmd.Flags().StringVar(&dst, "dst", "", "binary vector destination (required)")
	_ = cmd.MarkFlagRequired("src")
	_ = cmd.MarkFlagRequired("dst")
	return cmd
}

func newVectorsDumpCmd() *cobra.Command {
	var src string
	var listWords bool

	cmd := &cobra.Command{
		Use:   "dump",
		Short: "Inspect a binary vector file",
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := lexgo.New()
			if err != nil {
				return err
			}
			count, err := v.LoadVectorsBinaryFile(cmd.Context(), src)
			if err != nil {
				return err
			}
			cmd.Printf("%d vectors, dimension %d\n", count, v.VectorsLength())
			if listWords {
				var iterErr error
				v.Iterate(func(lex *lexgo.Lexeme) bool {
					s, err := v.Strings().String(lex.Orth)
					if err != nil {
						iterErr = err
						return false
					}
					cmd.Printf("%s\t%.6f\n", s, lex.L2Norm())
					return true
				})
				if iterErr != nil {
					return iterErr
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&src, "src", "", "binary vector file (required)")
	cmd.Flags().BoolVar(&listWords, "words", false, "list each word with its vector norm")
	_ = cmd.MarkFlagRequired("src")
	return cmd
}

func newExportCmd() *cobra.Command {
	var vectorsPath, out string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Build a model directory from a vector file",
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := lexgo.New()
			if err != nil {
				return err
			}
			count, err := v.LoadVectorsFile(cmd.Context(), vectorsPath)
			if err != nil {
				return err
			}
			if err := v.SaveToDirectory(out); err != nil {
				return err
			}
			cmd.Printf("exported %d lexemes to %s\n", count, out)
			return nil
		},
	}
	cmd.Flags().StringVar(&vectorsPath, "vectors", "", "text vector source (required)")
	cmd.Flags().StringVar(&out, "out", "", "model directory to create (required)")
	_ = cmd.MarkFlagRequired("vectors")
	_ = cmd.MarkFlagRequired("out")
	return cmd
}

func newPushCmd() *cobra.Command {
	var dir, commitTable string
	var sf storeFlags

	cmd := &cobra.Command{
		Use:   "push",
		Short: "Upload a model directory to blob storage",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := sf.open(cmd.Context())
			if err != nil {
				return err
			}

			var opts []persistence.RemoteOption
			if commitTable != "" {
				cfg, err := awsconfig.LoadDefaultConfig(cmd.Context())
				if err != nil {
					return fmt.Errorf("aws config: %w", err)
				}
				cs := s3blob.NewCommitStore(dynamodb.NewFromConfig(cfg), commitTable)
				opts = append(opts, persistence.WithCommitter(cs, sf.baseURI()))
			}

			if err := persistence.NewRemote(store, opts...).Push(cmd.Context(), dir); err != nil {
				return err
			}
			cmd.Printf("pushed %s\n", dir)
			return nil
		},
	}
	cmd.Flags().StringVar(&dir, "dir", "", "model directory (required)")
	cmd.Flags().StringVar(&commitTable, "commit-table", "", "DynamoDB table recording the current snapshot per model prefix")
	_ = cmd.MarkFlagRequired("dir")
	sf.register(cmd)
	return cmd
}

func newPullCmd() *cobra.Command {
	var dir string
	var sf storeFlags

	cmd := &cobra.Command{
		Use:   "pull",
		Short: "Download a model directory from blob storage",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := sf.open(cmd.Context())
			if err != nil {
				return err
			}
			if err := persistence.NewRemote(store).Pull(cmd.Context(), dir); err != nil {
				return err
			}
			cmd.Printf("pulled into %s\n", dir)
			return nil
		},
	}
	cmd.Flags().StringVar(&dir, "dir", "", "destination directory (required)")
	_ = cmd.MarkFlagRequired("dir")
	sf.register(cmd)
	return cmd
}

func main() {
	root := &cobra.Command{
		Use:           "lexgo",
		Short:         "Lexeme store tooling",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newVectorsCmd(), newExportCmd(), newPushCmd(), newPullCmd())

	if err := root.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

package cmd

import (
	"encoding/binary"
	"fmt"
	"os"
	"runtime"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/goccy/go-json"
	"github.com/spf13/cobra"
	"github.com/wkalt/bindec/decode"
	"github.com/wkalt/bindec/dsl"
	"github.com/wkalt/bindec/schema"
	"github.com/wkalt/bindec/schemafile"
	"golang.org/x/sync/errgroup"
)

var (
	decodeSchemaPath string
	decodeAsMap      bool
	decodeHex        bool
	decodeOrder      string
	decodeFloatOrder string
	decodeEncoding   string
)

// decodeCmd decodes one or more binary files against a schema document.
// Arguments may be paths or doublestar globs; results print as one JSON
// document per input file, in argument order.
var decodeCmd = &cobra.Command{
	Use:   "decode -s schema.bds [files or globs]",
	Short: "Decode binary files against a schema",
	Args:  cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		file, err := schemafile.Load(decodeSchemaPath, dsl.Builtins())
		checkErr(err)

		opts := file.Options
		if cmd.Flags().Changed("order") {
			order, err := flagOrder(decodeOrder)
			checkErr(err)
			opts = append(opts, schema.WithByteOrder(order))
		}
		if cmd.Flags().Changed("float-order") {
			order, err := flagOrder(decodeFloatOrder)
			checkErr(err)
			opts = append(opts, schema.WithFloatByteOrder(order))
		}
		if cmd.Flags().Changed("encoding") {
			opts = append(opts, schema.WithEncoding(decodeEncoding))
		}
		if decodeHex {
			opts = append(opts, schema.WithBytesAsHex())
		}
		compiled, err := file.Schema.Compile(opts...)
		checkErr(err)

		paths := []string{}
		for _, arg := range args {
			matches, err := doublestar.FilepathGlob(arg)
			checkErr(err)
			if len(matches) == 0 {
				bailf("no files match %s", arg)
			}
			paths = append(paths, matches...)
		}

		outputs := make([][]byte, len(paths))
		g := &errgroup.Group{}
		g.SetLimit(runtime.NumCPU())
		for i, path := range paths {
			i, path := i, path
			g.Go(func() error {
				out, err := decodeFile(compiled, path)
				if err != nil {
					return fmt.Errorf("%s: %w", path, err)
				}
				outputs[i] = out
				return nil
			})
		}
		checkErr(g.Wait())
		for _, out := range outputs {
			fmt.Println(string(out))
		}
	},
}

func decodeFile(compiled *schema.Compiled, path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	var result any
	if decodeAsMap {
		result, err = decode.DecodeMap(compiled, f)
	} else {
		result, err = decode.Decode(compiled, f)
	}
	if err != nil {
		return nil, err
	}
	return json.Marshal(result)
}

func flagOrder(name string) (binary.ByteOrder, error) {
	switch name {
	case "little":
		return binary.LittleEndian, nil
	case "big":
		return binary.BigEndian, nil
	default:
		return nil, fmt.Errorf("unknown byte order %q", name)
	}
}

func init() {
	rootCmd.AddCommand(decodeCmd)
	decodeCmd.PersistentFlags().StringVarP(&decodeSchemaPath, "schema", "s", "", "schema document (.bds or .yaml)")
	decodeCmd.PersistentFlags().BoolVar(&decodeAsMap, "map", false, "emit plain maps instead of ordered records")
	decodeCmd.PersistentFlags().BoolVar(&decodeHex, "hex", false, "render bytes fields as lowercase hex strings")
	decodeCmd.PersistentFlags().StringVar(&decodeOrder, "order", "little", "default integer byte order")
	decodeCmd.PersistentFlags().StringVar(&decodeFloatOrder, "float-order", "", "float byte order (defaults to --order)")
	decodeCmd.PersistentFlags().StringVar(&decodeEncoding, "encoding", "utf-8", "default text encoding")
	if err := decodeCmd.MarkPersistentFlagRequired("schema"); err != nil {
		panic(err)
	}
}

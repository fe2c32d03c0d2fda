package main

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"github.com/vango-dev/groupwire/internal/errors"
	"github.com/vango-dev/groupwire/pkg/address"
	"github.com/vango-dev/groupwire/pkg/inspect"
	"github.com/vango-dev/groupwire/pkg/message"
	"github.com/vango-dev/groupwire/pkg/protocol"
)

type decodeOptions struct {
	hexInput    bool
	frames      bool
	skipPayload bool
	sender      string
	jsonOutput  bool
}

func decodeCmd(e *env) *cobra.Command {
	var opts decodeOptions

	cmd := &cobra.Command{
		Use:   "decode [file]",
		Short: "Decode and describe a message",
		Long: `Decode a message written by "groupwire encode" and describe it.

The input is read from the file, or stdin when no file is given. It
holds a type byte followed by the encoded message, or a sequence of
stream frames with --frames.

Examples:
  groupwire encode --payload hi | groupwire decode --hex
  groupwire decode --frames capture.bin --json
  groupwire decode msg.bin --sender 10.0.0.1:7800`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := ""
			if len(args) == 1 {
				name = args[0]
			}
			return runDecode(cmd, e, name, opts)
		},
	}

	f := cmd.Flags()
	f.BoolVarP(&opts.hexInput, "hex", "x", false, "Input is hex encoded")
	f.BoolVar(&opts.frames, "frames", false, "Input is a sequence of stream frames")
	f.BoolVar(&opts.skipPayload, "skip-payload", false, "Stop before the payload and report its offset")
	f.StringVar(&opts.sender, "sender", "", "Known sender for messages encoded with --no-addrs")
	f.BoolVar(&opts.jsonOutput, "json", false, "Print JSON")

	return cmd
}

func runDecode(cmd *cobra.Command, e *env, name string, opts decodeOptions) error {
	data, err := readInput(cmd, name)
	if err != nil {
		return err
	}
	if opts.hexInput {
		data, err = hex.DecodeString(strings.Join(strings.Fields(string(data)), ""))
		if err != nil {
			return errors.New("G060").WithDetail("input is not valid hex").Wrap(err)
		}
	}

	var sender address.Address
	if opts.sender != "" {
		if sender, err = address.Parse(opts.sender); err != nil {
			return err
		}
	}

	codec, err := e.newCodec()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if opts.frames {
		r := bytes.NewReader(data)
		for i := 0; ; i++ {
			m, err := codec.ReadMessage(r)
			if err == io.EOF {
				return nil
			}
			if err != nil {
				return errors.FromError(err, "G099").WithDetail(fmt.Sprintf("frame %d", i))
			}
			if err := printDescription(out, inspect.Describe(m), opts.jsonOutput); err != nil {
				return err
			}
		}
	}

	desc, pos, err := decodeOne(codec, data, opts.skipPayload, sender)
	if err != nil {
		return errors.FromError(err, "G099").WithInput(data, pos)
	}
	return printDescription(out, desc, opts.jsonOutput)
}

// decodeOne decodes a type byte and message. On failure it returns the
// position the decoder reached.
func decodeOne(codec *message.Codec, data []byte, skip bool, sender address.Address) (inspect.Description, int, error) {
	if len(data) == 0 {
		return inspect.Description{}, 0, io.ErrUnexpectedEOF
	}
	m, err := codec.Registry().NewMessage(message.Type(data[0]))
	if err != nil {
		return inspect.Description{}, 0, err
	}

	d := protocol.NewDecoderAt(data, 1)
	if skip {
		bm, ok := m.(*message.BytesMessage)
		if !ok {
			return inspect.Description{}, 0, errors.New("G041").WithDetail("--skip-payload needs a bytes message")
		}
		pos, err := codec.DecodeSkipPayload(d, bm)
		if err != nil {
			return inspect.Description{}, d.Position(), err
		}
		desc := inspect.Describe(bm)
		desc.PayloadOffset = &pos
		return desc, pos, nil
	}

	if sender != nil {
		err = codec.DecodeNoAddrs(d, m, sender)
	} else {
		err = codec.Decode(d, m)
	}
	if err != nil {
		return inspect.Description{}, d.Position(), err
	}
	return inspect.Describe(m), d.Position(), nil
}

func printDescription(w io.Writer, desc inspect.Description, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(desc)
	}

	orNone := func(s string) string {
		if s == "" {
			return "<none>"
		}
		return s
	}

	fmt.Fprintf(w, "%s message\n", desc.Type)
	fmt.Fprintf(w, "  dest:    %s\n", orNone(desc.Dest))
	fmt.Fprintf(w, "  src:     %s\n", orNone(desc.Src))
	fmt.Fprintf(w, "  flags:   %s\n", orNone(strings.Join(desc.Flags, "|")))
	for _, h := range desc.Headers {
		fmt.Fprintf(w, "  header:  %d (magic %d) %s\n", h.ID, h.Magic, h.Value)
	}
	fmt.Fprintf(w, "  length:  %d\n", desc.Length)
	if desc.PayloadOffset != nil {
		fmt.Fprintf(w, "  offset:  %d\n", *desc.PayloadOffset)
	}
	if desc.Payload != nil {
		fmt.Fprintf(w, "  payload: %s\n", hex.EncodeToString(desc.Payload))
	}
	if desc.Object != "" {
		fmt.Fprintf(w, "  object:  %s\n", desc.Object)
	}
	return nil
}

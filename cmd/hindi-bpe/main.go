// Command hindi-bpe trains and applies a BPE vocabulary for Hindi text.
//
// Usage:
//
//	hindi-bpe train -corpus FILE [-merges N] [-min-freq N] [-unit byte|codepoint] [-clean] [-strict] -out FILE
//	hindi-bpe encode -vocab FILE [-strict] [-specials] TEXT...
//	hindi-bpe decode -vocab FILE ID...
//	hindi-bpe inspect -vocab FILE
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	hindibpe "github.com/amikos-tech/hindi-bpe"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}
	var err error
	switch os.Args[1] {
	case "train":
		err = runTrain(os.Args[2:])
	case "encode":
		err = runEncode(os.Args[2:])
	case "decode":
		err = runDecode(os.Args[2:])
	case "inspect":
		err = runInspect(os.Args[2:])
	default:
		usage()
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "hindi-bpe: %v\n", err)
		os.Exit(exitCode(err))
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: hindi-bpe <train|encode|decode|inspect> [flags]")
}

// exitCode maps the error taxonomy onto distinct shell exit codes.
func exitCode(err error) int {
	switch {
	case errors.Is(err, hindibpe.ErrInvalidEncoding):
		return 3
	case errors.Is(err, hindibpe.ErrUnknownSymbol):
		return 4
	case errors.Is(err, hindibpe.ErrArtifactCorrupt):
		return 5
	case errors.Is(err, os.ErrNotExist):
		return 6
	default:
		return 1
	}
}

func runTrain(args []string) error {
	fs := flag.NewFlagSet("train", flag.ExitOnError)
	corpusPath := fs.String("corpus", "", "path to the UTF-8 training corpus (.gz supported)")
	corpusURL := fs.String("corpus-url", "", "download the corpus from this URL when -corpus is not given")
	out := fs.String("out", "vocab.bpe", "output artifact path (.gz supported)")
	merges := fs.Int("merges", 0, "maximum number of merges, 0 = train to convergence")
	minFreq := fs.Int("min-freq", 1, "minimum pair frequency considered for merging")
	unitName := fs.String("unit", "byte", "atomic unit: byte or codepoint")
	clean := fs.Bool("clean", false, "apply the Hindi cleaning pipeline before training")
	strict := fs.Bool("strict", false, "reject corpus units that are not valid UTF-8")
	workers := fs.Int("workers", 0, "worker count for pair counting, 0 = NumCPU")
	quiet := fs.Bool("quiet", false, "suppress per-merge progress output")
	_ = fs.Parse(args)

	path := *corpusPath
	if path == "" {
		resolved, err := hindibpe.ResolveCorpus(*corpusURL)
		if err != nil {
			return err
		}
		path = resolved
	}
	text, err := hindibpe.LoadCorpus(path)
	if err != nil {
		return err
	}

	report := hindibpe.DescribeCorpus(text, 100)
	fmt.Printf("corpus: %d characters, %d words\n", report.Characters, report.Words)

	unit, err := hindibpe.ParseAtomicUnit(*unitName)
	if err != nil {
		return err
	}
	opts := []hindibpe.BuilderOption{
		hindibpe.WithMaxMerges(*merges),
		hindibpe.WithMinPairFrequency(*minFreq),
		hindibpe.WithAtomicUnit(unit),
	}
	if *clean {
		opts = append(opts, hindibpe.WithCleaner())
	}
	if *strict {
		opts = append(opts, hindibpe.WithStrictValidation())
	}
	if *workers > 0 {
		opts = append(opts, hindibpe.WithWorkers(*workers))
	}
	if !*quiet {
		opts = append(opts, hindibpe.WithProgress(func(ev hindibpe.MergeEvent) {
			if ev.Iteration <= 5 || ev.Iteration%500 == 0 {
				fmt.Printf("merge %d: (%d,%d) -> %d  freq=%d  symbols=%d  vocab=%d\n",
					ev.Iteration, ev.Pair.Left, ev.Pair.Right, ev.Result,
					ev.Frequency, ev.TotalSymbols, ev.VocabSize)
			}
		}))
	}

	builder, err := hindibpe.NewVocabularyBuilder(opts...)
	if err != nil {
		return err
	}
	artifact, err := builder.Train(context.Background(), text)
	if err != nil {
		return err
	}

	stats := builder.Stats()
	fmt.Printf("training %s: %d merges, vocab %d -> %d, symbols %d -> %d, compression %.2fx\n",
		builder.State(), stats.Merges, stats.InitialVocab, stats.FinalVocab,
		stats.InitialSymbols, stats.FinalSymbols, stats.CompressionRatio)

	if err := artifact.SaveFile(*out); err != nil {
		return err
	}
	fmt.Printf("artifact written to %s\n", *out)
	return nil
}

func loadTokenizer(path string) (*hindibpe.Tokenizer, error) {
	artifact, err := hindibpe.LoadFile(path)
	if err != nil {
		return nil, err
	}
	return hindibpe.NewTokenizer(artifact)
}

func runEncode(args []string) error {
	fs := flag.NewFlagSet("encode", flag.ExitOnError)
	vocab := fs.String("vocab", "vocab.bpe", "artifact path")
	strict := fs.Bool("strict", false, "fail on atomic units unseen during training")
	specials := fs.Bool("specials", false, "wrap output in <bos>/<eos>")
	_ = fs.Parse(args)
	if fs.NArg() == 0 {
		return errors.New("encode: no text given")
	}

	tok, err := loadTokenizer(*vocab)
	if err != nil {
		return err
	}
	var opts []hindibpe.EncodeOption
	if *strict {
		opts = append(opts, hindibpe.WithStrict())
	}
	if *specials {
		opts = append(opts, hindibpe.WithSpecials())
	}
	for _, text := range fs.Args() {
		symbols, err := tok.Encode(text, opts...)
		if err != nil {
			return err
		}
		parts := make([]string, len(symbols))
		for i, s := range symbols {
			parts[i] = strconv.Itoa(int(s))
		}
		fmt.Println(strings.Join(parts, " "))
	}
	return nil
}

func runDecode(args []string) error {
	fs := flag.NewFlagSet("decode", flag.ExitOnError)
	vocab := fs.String("vocab", "vocab.bpe", "artifact path")
	_ = fs.Parse(args)
	if fs.NArg() == 0 {
		return errors.New("decode: no symbol ids given")
	}

	tok, err := loadTokenizer(*vocab)
	if err != nil {
		return err
	}
	symbols := make([]hindibpe.Symbol, 0, fs.NArg())
	for _, arg := range fs.Args() {
		id, err := strconv.Atoi(arg)
		if err != nil {
			return errors.Wrapf(err, "decode: bad symbol id %q", arg)
		}
		symbols = append(symbols, hindibpe.Symbol(id))
	}
	text, err := tok.Decode(symbols)
	if err != nil {
		return err
	}
	fmt.Println(text)
	return nil
}

func runInspect(args []string) error {
	fs := flag.NewFlagSet("inspect", flag.ExitOnError)
	vocab := fs.String("vocab", "vocab.bpe", "artifact path")
	limit := fs.Int("limit", 20, "number of merged symbols to display, 0 = all")
	_ = fs.Parse(args)

	artifact, err := hindibpe.LoadFile(*vocab)
	if err != nil {
		return err
	}
	tok, err := hindibpe.NewTokenizer(artifact)
	if err != nil {
		return err
	}

	table := tok.Table()
	merges := artifact.Merges()
	fmt.Printf("unit=%s clean=%t vocab=%d merges=%d\n", artifact.Unit, artifact.Clean, table.Len(), len(merges))
	n := len(merges)
	if *limit > 0 && n > *limit {
		n = *limit
	}
	for _, m := range merges[:n] {
		fmt.Printf("  (%d,%d) -> %s\n", m.Left, m.Right, hindibpe.DescribeSymbol(table, m.Result, artifact.Unit))
	}
	return nil
}

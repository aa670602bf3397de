// voxparse parses spoken-expense utterances from the command line or
// stdin, using the same transcript parser the service runs. With -live
// it drives a scripted recognition session end to end, which is handy
// for trying vocabulary profiles before deploying them.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/shopspring/decimal"

	"github.com/voxpense/voxpense/pkg/command"
	"github.com/voxpense/voxpense/pkg/session"
	"github.com/voxpense/voxpense/pkg/transcript"
)

func main() {
	vocabDir := flag.String("vocab-dir", "", "directory of vocabulary profile YAML files")
	profile := flag.String("profile", "", "vocabulary profile name (requires -vocab-dir)")
	jsonOut := flag.Bool("json", false, "emit one JSON object per parsed utterance")
	live := flag.Bool("live", false, "drive a full capture session instead of parsing directly")
	flag.Parse()

	parser, err := buildParser(*vocabDir, *profile)
	if err != nil {
		log.Fatalf("voxparse: %v", err)
	}

	utterances := make(chan string)
	go func() {
		defer close(utterances)
		if flag.NArg() > 0 {
			for _, arg := range flag.Args() {
				utterances <- arg
			}
			return
		}
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			utterances <- scanner.Text()
		}
	}()

	var failed int
	if *live {
		failed = runLive(parser, utterances, *jsonOut)
	} else {
		failed = runDirect(parser, utterances, *jsonOut)
	}
	if failed > 0 {
		os.Exit(1)
	}
}

func buildParser(vocabDir, profile string) (*transcript.Parser, error) {
	if vocabDir == "" {
		if profile != "" {
			return nil, fmt.Errorf("-profile requires -vocab-dir")
		}
		return transcript.NewParser(nil)
	}

	loader := transcript.NewLoader(vocabDir)
	if _, err := loader.LoadAll(); err != nil {
		return nil, err
	}
	if profile == "" {
		return transcript.NewParser(nil)
	}
	p, ok := loader.Get(profile)
	if !ok {
		return nil, fmt.Errorf("profile %q not found in %s", profile, vocabDir)
	}
	return p.Parser, nil
}

func printCommand(cmd transcript.Command, jsonOut bool) {
	if jsonOut {
		json.NewEncoder(os.Stdout).Encode(cmd)
		return
	}
	fmt.Printf("%s\t%s\n", cmd.Amount.StringFixed(2), cmd.Description)
}

func runDirect(parser *transcript.Parser, utterances <-chan string, jsonOut bool) int {
	var failed int
	for text := range utterances {
		cmd, err := parser.Parse(text)
		if err != nil {
			fmt.Fprintf(os.Stderr, "voxparse: %q: %v\n", text, err)
			failed++
			continue
		}
		printCommand(cmd, jsonOut)
	}
	return failed
}

// printAdder satisfies the pipeline's adder contract by writing parsed
// commands to stdout.
type printAdder struct {
	jsonOut bool
}

func (a printAdder) AddRecord(_ context.Context, description string, amount decimal.Decimal) error {
	printCommand(transcript.Command{Amount: amount, Description: description}, a.jsonOut)
	return nil
}

// printSink reports pipeline warnings on stderr.
type printSink struct {
	failed *int
}

func (s printSink) Report(_ context.Context, category, message string) {
	fmt.Fprintf(os.Stderr, "voxparse: %s: %s\n", category, message)
	*s.failed++
}

func runLive(parser *transcript.Parser, utterances <-chan string, jsonOut bool) int {
	var failed int
	sink := printSink{failed: &failed}
	pipe := command.NewPipeline(parser, printAdder{jsonOut: jsonOut}, sink)

	rec := &session.ScriptedRecognizer{}
	sess := session.NewSession("voxparse", rec, session.Config{Language: "en-US", Continuous: true}, session.Callbacks{
		Transcript: func(text string) {
			// Parse and add failures are reported through the sink.
			pipe.Process(context.Background(), text)
		},
		Failure: func(rerr session.RecognitionError) {
			sink.Report(context.Background(), "session_"+string(rerr.Category), rerr.Error())
		},
	})

	if err := sess.Start(); err != nil {
		log.Fatalf("voxparse: start session: %v", err)
	}

	for text := range utterances {
		rec.EmitFinal(text)
	}

	rec.EmitEnd()
	if err := sess.Close(); err != nil {
		log.Fatalf("voxparse: close session: %v", err)
	}
	return failed
}

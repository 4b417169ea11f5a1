// Command pdfer is a small CLI front end over the document/write/encryption
// packages: open a PDF, optionally authenticate it, apply page mutations,
// and save it back as a full rewrite or an incremental update.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/benedoc-inc/pdfcore/document"
	"github.com/benedoc-inc/pdfcore/write"
)

func main() {
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "PANIC: %v\n", r)
			os.Exit(1)
		}
	}()

	var (
		inputPDF    = flag.String("input", "", "Path to input PDF file")
		outputPDF   = flag.String("output", "", "Path to output PDF file (if empty, no file is written)")
		password    = flag.String("password", "", "Password to authenticate against the security handler")
		verbose     = flag.Bool("verbose", false, "Enable verbose logging")
		info        = flag.Bool("info", false, "Print a summary of the document and exit")
		incremental = flag.Bool("incremental", false, "Save as an incremental update instead of a full rewrite")
		xrefStream  = flag.Bool("xref-stream", false, "Emit a cross-reference stream instead of a classic table")
		renumber    = flag.Bool("renumber", false, "Renumber objects ascending from 1 on a full rewrite")
		removeIndex = flag.Int("remove-page", -1, "Remove the page at this zero-based index before saving")
		moveFrom    = flag.Int("move-from", -1, "Move the page at this index (requires -move-to)")
		moveTo      = flag.Int("move-to", -1, "Destination index for -move-from")
	)
	flag.Parse()

	if *inputPDF == "" {
		log.Fatal("Error: -input flag is required")
	}

	pdfBytes, err := os.ReadFile(*inputPDF)
	if err != nil {
		log.Fatalf("Error reading PDF: %v", err)
	}

	doc, err := document.Open(pdfBytes, []byte(*password), *verbose)
	if err != nil {
		log.Fatalf("Error opening PDF: %v", err)
	}

	if doc.IsEncrypted() && !doc.IsAuthenticated() {
		log.Fatal("Error: failed to authenticate against the document's security handler")
	}

	if *info {
		printInfo(doc)
		return
	}

	if *removeIndex >= 0 {
		ref, err := doc.RemovePage(*removeIndex)
		if err != nil {
			log.Fatalf("Error removing page %d: %v", *removeIndex, err)
		}
		if *verbose {
			log.Printf("removed page %s at index %d", ref, *removeIndex)
		}
	}

	if *moveFrom >= 0 {
		if *moveTo < 0 {
			log.Fatal("Error: -move-to is required when -move-from is set")
		}
		if err := doc.MovePage(*moveFrom, *moveTo); err != nil {
			log.Fatalf("Error moving page %d -> %d: %v", *moveFrom, *moveTo, err)
		}
	}

	for _, w := range doc.Warnings.Warnings() {
		if *verbose {
			log.Printf("warning: %s", w.Error())
		}
	}

	if *outputPDF == "" {
		return
	}

	opts := write.Options{Renumber: *renumber, UseXRefStream: *xrefStream}
	var out []byte
	if *incremental {
		out, err = write.WriteIncremental(doc, opts)
	} else {
		out, err = write.WriteFull(doc, opts)
	}
	if err != nil {
		log.Fatalf("Error serializing PDF: %v", err)
	}

	if err := os.WriteFile(*outputPDF, out, 0644); err != nil {
		log.Fatalf("Error writing PDF: %v", err)
	}

	fmt.Printf("Wrote %s (%d bytes, %d pages)\n", *outputPDF, len(out), len(doc.GetPages()))
}

func printInfo(doc *document.Document) {
	fmt.Printf("Version:       %s\n", doc.Version())
	fmt.Printf("Pages:         %d\n", len(doc.GetPages()))
	fmt.Printf("Encrypted:     %t\n", doc.IsEncrypted())
	if doc.IsEncrypted() {
		fmt.Printf("Authenticated: %t\n", doc.IsAuthenticated())
		enc := doc.Encryption()
		fmt.Printf("Security:      V=%d R=%d KeyLength=%d bytes\n", enc.V, enc.R, enc.KeyLength)
	}
	fmt.Printf("Linearized:    %t\n", doc.Linearized())
	fmt.Printf("Recovered:     %t\n", doc.Recovered())
	if doc.Warnings.HasWarnings() {
		fmt.Printf("Warnings:\n")
		for _, w := range doc.Warnings.Warnings() {
			fmt.Printf("  - %s\n", w.Error())
		}
	}
}

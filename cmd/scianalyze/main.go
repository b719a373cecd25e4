package main

import (
	"bufio"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/davecgh/go-spew/spew"
	"github.com/soypat/saleae"
	"github.com/soypat/saleae/analyzers"
	"github.com/soypat/vs10x3/sci"
)

// Optional flags.
var (
	dumpInvalid bool
)

func main() {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug})
	slog.SetDefault(slog.New(handler))
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "scianalyze - Process Binary Saleae digital data files corresponding to VS10x3 SCI transactions.\n\tUsage:\n")
		flag.PrintDefaults()
	}
	fclk := flag.String("f-clk", "digital_0.bin", "Input filename: SPI SCK data.")
	fcs := flag.String("f-cs", "digital_1.bin", "Input filename: XCS data.")
	fmosi := flag.String("f-si", "digital_2.bin", "Input filename: SPI SI (host to chip) data.")
	fmiso := flag.String("f-so", "digital_3.bin", "Input filename: SPI SO (chip to host) data.")
	output := flag.String("o", "", "Output filename of SCI transactions. Defaults to stdout.")
	xtal := flag.Uint("xtal", sci.DefaultXtaliHz, "Crystal frequency in Hz assumed before the first CLOCKF write.")
	omitRead := flag.Bool("omit-read", false, "Choose to omit read transactions in output.")
	omitWrite := flag.Bool("omit-write", false, "Choose to omit write transactions in output.")
	flag.BoolVar(&dumpInvalid, "dump-invalid", false, "Hex dump the raw bytes of transactions that fail to decode.")
	flag.Parse()
	if *omitRead && *omitWrite {
		log.Fatal("cannot omit both read and write transactions")
	}
	a := newAnalyzer(uint32(*xtal))
	a.OmitRead = *omitRead
	a.OmitWrite = *omitWrite

	start := time.Now()
	if err := a.run(*fclk, *fcs, *fmosi, *fmiso, *output); err != nil {
		log.Fatal(err.Error())
	}
	slog.Info("finished", slog.Duration("elapsed", time.Since(start)))
}

func (a *analyzer) run(fclk, fcs, fmosi, fmiso, output string) error {
	caps, err := processSpiFiles(fclk, fcs, fmosi, fmiso)
	if err != nil {
		return err
	}
	txs := a.process(caps)
	out := os.Stdout
	if output != "" {
		out, err = os.Create(output)
		if err != nil {
			return err
		}
		defer out.Close()
	}
	w := bufio.NewWriter(out)
	early := 0
	for _, tx := range txs {
		if tx.Early {
			early++
		}
		if tx.Err != nil && dumpInvalid {
			slog.Debug("invalid transaction", slog.Int("num", tx.Num), slog.String("mosi", spew.Sdump(tx.Raw)))
		}
		if _, err = fmt.Fprintln(w, tx.String()); err != nil {
			return err
		}
	}
	if early > 0 {
		slog.Warn("commands sent before previous write completed", slog.Int("count", early))
	}
	slog.Info("decoded", slog.Int("transactions", len(caps)), slog.Int("printed", len(txs)))
	return w.Flush()
}

func processSpiFiles(fclk, fcs, fmosi, fmiso string) ([]capture, error) {
	clk, err := opendigital(fclk)
	if err != nil {
		return nil, err
	}
	cs, err := opendigital(fcs)
	if err != nil {
		return nil, err
	}
	mosi, err := opendigital(fmosi)
	if err != nil {
		return nil, err
	}
	miso, err := opendigital(fmiso)
	if err != nil {
		return nil, err
	}
	spi := analyzers.SPI{}
	txs, _ := spi.Scan(clk, cs, mosi, miso)
	return capturesFromSPI(txs), nil
}

func opendigital(filename string) (*saleae.DigitalFile, error) {
	fp, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer fp.Close()
	return saleae.ReadDigitalFile(fp)
}

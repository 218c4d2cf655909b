// isoserve: Scoring server that evaluates a network's readout under CKKS
//
// The server holds the trained readout in plaintext. Clients send their
// parameters and evaluation keys, then stream encrypted feature vectors;
// scores come back encrypted under the client's key.
package main

import (
	"flag"
	"fmt"
	"io"
	"net"
	"os"

	"github.com/tuneinsight/lattigo/v5/core/rlwe"
	"gonum.org/v1/gonum/mat"

	"github.com/cats256/DL-Tabular-Data-Dynamical-Isometry/private"
	"github.com/cats256/DL-Tabular-Data-Dynamical-Isometry/utils"
)

var (
	weightsFile = flag.String("weights", "", "Weights JSON file (required)")
	addr        = flag.String("addr", "localhost:7700", "Listen address")
	verbose     = flag.Bool("verbose", false, "Verbose output")
)

func main() {
	flag.Parse()
	utils.Verbose = *verbose

	if *weightsFile == "" {
		fmt.Fprintln(os.Stderr, "a weights file is required")
		os.Exit(1)
	}
	weights, err := utils.LoadWeights(*weightsFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading weights: %v\n", err)
		os.Exit(1)
	}
	model, err := utils.RestoreNet(weights)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error restoring network: %v\n", err)
		os.Exit(1)
	}
	log("Readout ready: %s", private.EstimateCost(model.FeatureWidth(), model.OutputSize))

	listener, err := net.Listen("tcp", *addr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error listening on %s: %v\n", *addr, err)
		os.Exit(1)
	}
	defer listener.Close()
	log("Listening on %s", *addr)

	for {
		conn, err := listener.Accept()
		if err != nil {
			log("Accept error: %v", err)
			continue
		}
		log("Client connected from %s", conn.RemoteAddr())
		if err := serve(conn, model.Last.W.Value, model.Last.B.Value); err != nil && err != io.EOF {
			log("Session error: %v", err)
		}
		conn.Close()
		log("Client done")
	}
}

// serve runs one scoring session: setup, then score requests until done.
func serve(conn net.Conn, weight, bias *mat.Dense) error {
	protocol := private.NewProtocol(conn, conn)

	setup, err := protocol.ReceiveSetup()
	if err != nil {
		return err
	}
	srv, err := private.NewServerContext(setup.Params, setup.EvalKeys)
	if err != nil {
		protocol.SendError(err)
		return err
	}
	readout, err := private.NewEncryptedReadout(weight, bias, srv)
	if err != nil {
		protocol.SendError(err)
		return err
	}
	if err := protocol.SendReady(); err != nil {
		return err
	}
	log("Session ready, %d-wide readout", readout.Width())

	for {
		payload, err := protocol.ReceiveScore()
		if err == io.EOF {
			return io.EOF
		}
		if err != nil {
			return err
		}

		ct := new(rlwe.Ciphertext)
		if err := ct.UnmarshalBinary(payload.Ciphertext); err != nil {
			protocol.SendError(err)
			continue
		}

		scored, err := readout.Score(ct)
		if err != nil {
			protocol.SendError(err)
			continue
		}

		ctBytes, err := scored.MarshalBinary()
		if err != nil {
			protocol.SendError(err)
			continue
		}
		if err := protocol.SendResult(payload.BatchID, ctBytes, scored.Level()); err != nil {
			return err
		}
		log("Batch %d scored", payload.BatchID)
	}
}

func log(format string, args ...interface{}) {
	if *verbose {
		fmt.Fprintf(os.Stderr, "[SERVER] "+format+"\n", args...)
	}
}

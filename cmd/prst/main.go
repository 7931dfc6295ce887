// Command prst runs one primality test against a k·b^n+c (or factorial /
// primorial / cyclotomic) candidate, dispatching to the Fermat, Proth,
// Pocklington, Morrison, or Order driver named on the command line.
//
// Usage:
//
//	prst -k 3 -b 2 -n 353 -c 1 -proth
//	prst -k 3 -b 2 -n 272 -c -1 -morrison -factors 3
//	prst -k 1 -b 960 -n 128 -c 1 -pocklington -factors 2,3,5
//	prst -k 3 -b 2 -n 352 -c 1 -fermat -proof save -prooffile cert.prst
//	prst -k 3 -b 2 -n 352 -c 1 -fermat -proof cert -prooffile cert.prst
//
// With -proof, n must be a multiple of 2^proofdepth (16 by default).
package main

import (
	"fmt"
	"math/big"
	"os"
	"strconv"
	"strings"

	flag "github.com/spf13/pflag"

	"github.com/prst-go/prst/checkpoint"
	"github.com/prst-go/prst/giant"
	"github.com/prst-go/prst/input"
	"github.com/prst-go/prst/internal/clog"
	"github.com/prst-go/prst/primality"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	fs := flag.NewFlagSet("prst", flag.ContinueOnError)

	k := fs.Int64("k", 1, "multiplier k in k*b^n+c")
	b := fs.String("b", "2", "base b in k*b^n+c")
	n := fs.Int64("n", 0, "exponent n in k*b^n+c")
	c := fs.Int64("c", 1, "offset c in k*b^n+c")

	doFermat := fs.Bool("fermat", false, "run the plain Fermat probable-prime test")
	doProth := fs.Bool("proth", false, "run the Proth test (N = k*2^n+1)")
	doPocklington := fs.Bool("pocklington", false, "run the Pocklington test (N-1 factored)")
	doMorrison := fs.Bool("morrison", false, "run the Morrison test (N+1 factored)")
	doOrder := fs.Bool("order", false, "compute the multiplicative order of -base mod N")

	base := fs.Int64("base", 0, "explicit test base (0 = auto-select where supported)")
	factorsFlag := fs.String("factors", "", "comma-separated known prime factors of N-1 (Pocklington) or N+1 (Morrison), or prime^mult pairs for Order (e.g. 2^6,3)")
	check := fs.String("check", "strong", "exponentiation check mode: strong or none")
	threads := fs.Int("threads", 1, "worker thread hint (accepted for CLI compatibility; this build runs single-threaded)")
	fft := fs.String("fft", "", "FFT size override hint (accepted for CLI compatibility, not consulted)")

	proofMode := fs.String("proof", "", "proof workflow stage for -fermat: save (produce a certificate), build, or cert (replay and verify it)")
	proofFile := fs.String("prooffile", "", "path for the proof certificate file (default: derived from N)")
	proofDepth := fs.Int("proofdepth", 4, "proof folding depth, i.e. proof.Save/Build round count")
	securitySeed := fs.String("securityseed", "", "ProofSecuritySeed for proof.Build's post-fold security multiply (build/cert only)")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "prst: prove or disprove primality of k*b^n+c\n\n")
		fmt.Fprintf(os.Stderr, "Usage:\n  prst -k K -b B -n N -c C [-fermat|-proth|-pocklington|-morrison|-order] [options]\n\n")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return 0
		}
		return 2
	}

	_ = threads
	_ = fft

	bVal, ok := new(big.Int).SetString(*b, 10)
	if !ok {
		fmt.Fprintf(os.Stderr, "prst: invalid base %q\n", *b)
		return 2
	}
	form := input.NewKBNC(*k, *n, bVal, big.NewInt(*c))
	N, err := form.Value()
	if err != nil {
		fmt.Fprintf(os.Stderr, "prst: %v\n", err)
		return 2
	}

	log := clog.New(os.Stderr)
	log.Info().Str("n", form.DisplayText()).Log("starting test")

	strongCheck := *check != "none"
	primF := primality.Form{K: *k, B: bVal, N: int(*n), C: *c}

	switch {
	case *doProth:
		prime, usedBase, res, err := primality.Proth(primF)
		if err != nil {
			return fail(log, err)
		}
		report(form, prime, fmt.Sprintf("Proth, a=%d, mismatches=%d", usedBase, res.Mismatches))

	case *doPocklington:
		factors, ferr := parseBigFactors(*factorsFlag)
		if ferr != nil {
			return fail(log, ferr)
		}
		a := *base
		if a == 0 {
			a = 3
		}
		prime, witness, err := primality.Pocklington(N, factors, a)
		if err != nil {
			return fail(log, err)
		}
		detail := fmt.Sprintf("Pocklington, a=%d", a)
		if witness != nil {
			detail += fmt.Sprintf(", factor=%s", witness.String())
		}
		report(form, prime, detail)

	case *doMorrison:
		factors, ferr := parseBigFactors(*factorsFlag)
		if ferr != nil {
			return fail(log, ferr)
		}
		prime, p, witness, err := primality.Morrison(N, factors)
		if err != nil {
			return fail(log, err)
		}
		detail := fmt.Sprintf("Morrison, P=%d, Q=-1", p)
		if witness != nil {
			detail += fmt.Sprintf(", factor=%s", witness.String())
		}
		report(form, prime, detail)

	case *doOrder:
		factors, ferr := parsePrimeFactors(*factorsFlag)
		if ferr != nil {
			return fail(log, ferr)
		}
		a := *base
		if a == 0 {
			a = 2
		}
		order, err := primality.Order(N, a, factors)
		if err != nil {
			return fail(log, err)
		}
		fmt.Printf("order of %d mod %s = %s\n", a, form.DisplayText(), order.String())

	case *doFermat:
		a := *base
		if a == 0 {
			a = 3
		}

		if *proofMode == "" {
			res, err := primality.Fermat(N, primF, a, strongCheck, nil)
			if err != nil {
				return fail(log, err)
			}
			report(form, res.IsPRP(), fmt.Sprintf("Fermat, a=%d, mismatches=%d", a, res.Mismatches))
			return 0
		}

		fingerprint, ferr := form.Fingerprint()
		if ferr != nil {
			return fail(log, ferr)
		}
		path := proofFilePath(*proofFile, N)

		switch *proofMode {
		case "save":
			res, err := primality.ProveFermat(N, primF, a, *proofDepth, fingerprint)
			if err != nil {
				return fail(log, err)
			}
			if err := saveProofCertificate(path, fingerprint, res); err != nil {
				return fail(log, err)
			}
			log.Info().Str("path", path).Int("depth", *proofDepth).Log("proof certificate written")
			fmt.Printf("proof certificate written to %s (%d rounds)\n", path, *proofDepth)

		case "build", "cert":
			res, err := loadProofCertificate(path, fingerprint, N, *proofDepth)
			if err != nil {
				return fail(log, err)
			}
			verified, err := primality.VerifyFermat(N, primF, a, res, fingerprint, *securitySeed)
			if err != nil {
				return fail(log, err)
			}
			report(form, verified.IsPRP(), fmt.Sprintf("Fermat (proof-verified), a=%d, depth=%d", a, *proofDepth))

		default:
			fmt.Fprintf(os.Stderr, "prst: invalid -proof mode %q (want save, build, or cert)\n", *proofMode)
			return 2
		}

	default:
		fmt.Fprintln(os.Stderr, "prst: one of -fermat, -proth, -pocklington, -morrison, -order is required")
		fs.Usage()
		return 2
	}

	return 0
}

func report(form *input.InputNum, prime bool, detail string) {
	if prime {
		fmt.Printf("%s is prime! (%s)\n", form.DisplayText(), detail)
		return
	}
	fmt.Printf("%s is not prime. (%s)\n", form.DisplayText(), detail)
}

func fail(log *clog.Logger, err error) int {
	log.Err().Err(err).Log("test failed")
	fmt.Fprintf(os.Stderr, "prst: %v\n", err)
	return 1
}

// proofCertAppID tags proof certificate checkpoint files, distinct from
// the main run's own checkpoint (which this CLI build doesn't otherwise
// write; see DESIGN.md).
const proofCertAppID = byte(2)

// proofFilePath returns explicit if non-empty, else a filename derived
// from N, so a bare "-fermat -proof save" without -prooffile still picks
// a stable, reproducible name.
func proofFilePath(explicit string, n *big.Int) string {
	if explicit != "" {
		return explicit
	}
	return fmt.Sprintf("prst_%s.proof", n.String())
}

// saveProofCertificate persists a ProveFermat result as a checkpoint.File:
// the top-level file holds the certificate (KindCertificate: Power is
// proof.Save's remaining exponent, X is the raw yTop residue), and one
// child per round holds that round's witness (KindProduct, Depth is the
// round index).
func saveProofCertificate(path string, fingerprint uint32, res *primality.EngineResult) error {
	f := checkpoint.New(path, proofCertAppID, fingerprint)
	if err := f.Write(checkpoint.TaskState{Kind: checkpoint.KindCertificate, Power: res.Remaining, X: res.YTop.Int().Bytes()}); err != nil {
		return err
	}
	for i, mu := range res.Mus {
		child := f.AddChild(fmt.Sprintf(".mu%d", i))
		if err := child.Write(checkpoint.TaskState{Kind: checkpoint.KindProduct, Depth: i, X: mu.Int().Bytes()}); err != nil {
			return err
		}
	}
	return nil
}

// loadProofCertificate reads back what saveProofCertificate wrote, for a
// VerifyFermat call. depth must match the -proofdepth the certificate was
// saved with.
func loadProofCertificate(path string, fingerprint uint32, n *big.Int, depth int) (*primality.EngineResult, error) {
	f := checkpoint.New(path, proofCertAppID, fingerprint)
	ts, ok, err := f.Read()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("prst: no proof certificate at %s", path)
	}

	yTop := giant.New(n, new(big.Int).SetBytes(ts.X))
	mus := make([]*giant.Giant, depth)
	for i := 0; i < depth; i++ {
		child := f.AddChild(fmt.Sprintf(".mu%d", i))
		cts, ok, err := child.Read()
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, fmt.Errorf("prst: missing proof witness %d at %s", i, child.Path())
		}
		mus[i] = giant.New(n, new(big.Int).SetBytes(cts.X))
	}

	return &primality.EngineResult{YTop: yTop, Mus: mus, Remaining: ts.Power}, nil
}

func parseBigFactors(s string) ([]*big.Int, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	out := make([]*big.Int, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		v, ok := new(big.Int).SetString(p, 10)
		if !ok {
			return nil, fmt.Errorf("prst: invalid factor %q", p)
		}
		out = append(out, v)
	}
	return out, nil
}

func parsePrimeFactors(s string) ([]primality.PrimeFactor, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	out := make([]primality.PrimeFactor, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		prime, mult := p, "1"
		if i := strings.IndexByte(p, '^'); i >= 0 {
			prime, mult = p[:i], p[i+1:]
		}
		pv, err := strconv.ParseInt(prime, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("prst: invalid factor %q: %w", p, err)
		}
		mv, err := strconv.Atoi(mult)
		if err != nil {
			return nil, fmt.Errorf("prst: invalid factor multiplicity %q: %w", p, err)
		}
		out = append(out, primality.PrimeFactor{Prime: pv, Mult: mv})
	}
	return out, nil
}

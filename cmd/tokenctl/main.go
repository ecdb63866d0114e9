// Package main provides tokenctl, a command line client for token
// operations signed with a local keypair.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/bjeschke/solanahub/internal/domain"
	"github.com/bjeschke/solanahub/internal/lifecycle"
	"github.com/bjeschke/solanahub/internal/pinata"
	"github.com/bjeschke/solanahub/internal/solana"
	"github.com/bjeschke/solanahub/internal/storage/memory"
	"github.com/bjeschke/solanahub/internal/tokenops"
	"github.com/bjeschke/solanahub/internal/validate"
	"github.com/bjeschke/solanahub/internal/wallet"
)

const usage = `tokenctl - SPL token operations

Usage: tokenctl <command> [flags]

Commands:
  create            Create a token with metadata
  mint              Mint tokens to a wallet
  set-authority     Transfer a mint capability
  revoke-authority  Revoke a mint capability (irreversible)
  freeze            Freeze a holder's token account
  thaw              Thaw a holder's token account
  create-metadata   Attach metadata to an existing mint
  update-metadata   Update mutable metadata
  lookup            Resolve a mint's metadata
  holdings          List the wallet's token balances
  transactions      List recent wallet transactions
  frozen            List frozen accounts of a mint
  status            Show cluster status

Environment:
  SOLANA_RPC_ENDPOINT  RPC endpoint (default https://api.devnet.solana.com)
  SOLANA_KEYPAIR       Keypair file (default id.json)
  PINATA_API_KEY       Pinata API key (create/metadata commands)
  PINATA_SECRET_KEY    Pinata API secret
`

func main() {
	log.SetFlags(0)

	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	app, err := newApp(ctx)
	if err != nil {
		log.Fatalf("tokenctl: %v", err)
	}

	cmd, args := os.Args[1], os.Args[2:]
	if err := app.run(ctx, cmd, args); err != nil {
		log.Fatalf("tokenctl: %v", err)
	}
}

type app struct {
	svc       *lifecycle.Service
	inspector *tokenops.Inspector
	signer    *wallet.KeypairWallet
}

func newApp(ctx context.Context) (*app, error) {
	endpoint := envOr("SOLANA_RPC_ENDPOINT", "https://api.devnet.solana.com")
	keypairPath := envOr("SOLANA_KEYPAIR", "id.json")

	signer, err := wallet.FromFile(keypairPath)
	if err != nil {
		return nil, fmt.Errorf("load keypair %s: %w", keypairPath, err)
	}

	chain := solana.NewHTTPClient(endpoint)
	builder := tokenops.NewBuilder(chain, tokenops.Config{FeeReceiver: signer.PublicKey()})
	inspector := tokenops.NewInspector(chain, nil)

	svc := lifecycle.NewService(lifecycle.Options{
		Builder:   builder,
		Submitter: lifecycle.NewSubmitter(chain, signer, lifecycle.DefaultRetryPolicy()),
		Tracker:   lifecycle.NewTracker(chain),
		Publisher: pinata.NewClient(os.Getenv("PINATA_API_KEY"), os.Getenv("PINATA_SECRET_KEY")),
		Metadata:  inspector,
		Records:   memory.NewTokenRecordStore(),
		Lookups:   memory.NewMetadataLookupStore(),
		Attempts:  memory.NewAttemptStore(),
		Network:   envOr("SOLANA_NETWORK", "devnet"),
	})

	return &app{svc: svc, inspector: inspector, signer: signer}, nil
}

func (a *app) run(ctx context.Context, cmd string, args []string) error {
	switch cmd {
	case "create":
		return a.cmdCreate(ctx, args)
	case "mint":
		return a.cmdMint(ctx, args)
	case "set-authority":
		return a.cmdSetAuthority(ctx, args)
	case "revoke-authority":
		return a.cmdRevokeAuthority(ctx, args)
	case "freeze":
		return a.cmdFreezeThaw(ctx, args, domain.OpFreezeAccount)
	case "thaw":
		return a.cmdFreezeThaw(ctx, args, domain.OpThawAccount)
	case "create-metadata":
		return a.cmdMetadata(ctx, args, domain.OpCreateMetadata)
	case "update-metadata":
		return a.cmdMetadata(ctx, args, domain.OpUpdateMetadata)
	case "lookup":
		return a.cmdLookup(ctx, args)
	case "holdings":
		return a.cmdHoldings(ctx)
	case "transactions":
		return a.cmdTransactions(ctx, args)
	case "frozen":
		return a.cmdFrozen(ctx, args)
	case "status":
		return a.cmdStatus(ctx)
	default:
		fmt.Fprint(os.Stderr, usage)
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func (a *app) cmdCreate(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("create", flag.ExitOnError)
	name := fs.String("name", "", "Token name (required)")
	symbol := fs.String("symbol", "", "Token symbol (required)")
	decimals := fs.Int("decimals", 9, "Token decimals [0, 9]")
	description := fs.String("description", "", "Token description")
	image := fs.String("image", "", "Path to the token image (required)")
	fs.Parse(args)

	bundle, err := a.publish(ctx, *image, *name, *symbol, *description, *decimals)
	if err != nil {
		return err
	}
	fmt.Printf("published: %s\n", bundle.MetadataURI)

	res, err := a.svc.Execute(ctx, domain.TokenIntent{
		Operation: domain.OpCreateToken,
		Actor:     a.signer.PublicKey(),
		Decimals:  *decimals,
		Metadata: domain.MetadataFields{
			Name:        *name,
			Symbol:      *symbol,
			Description: *description,
			URI:         bundle.MetadataURI,
		},
	}, &bundle)
	if err != nil {
		return err
	}

	fmt.Printf("created mint %s\nsignature %s\n", res.Mint, res.Signature)
	return nil
}

func (a *app) cmdMint(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("mint", flag.ExitOnError)
	mint := fs.String("mint", "", "Mint address (required)")
	recipient := fs.String("recipient", "", "Recipient wallet (defaults to the signer)")
	amount := fs.String("amount", "", "Amount in display units (required)")
	fs.Parse(args)

	mintKey, err := validate.ParseAddress(*mint)
	if err != nil {
		return err
	}
	recipientKey := a.signer.PublicKey()
	if *recipient != "" {
		recipientKey, err = validate.ParseWalletAddress(*recipient)
		if err != nil {
			return err
		}
	}

	res, err := a.svc.Execute(ctx, domain.TokenIntent{
		Operation: domain.OpMintTo,
		Actor:     a.signer.PublicKey(),
		Mint:      mintKey,
		Recipient: recipientKey,
		Amount:    *amount,
	}, nil)
	if err != nil {
		return err
	}

	fmt.Printf("minted %s to %s\nsignature %s\n", *amount, recipientKey.ToBase58(), res.Signature)
	return nil
}

func (a *app) cmdSetAuthority(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("set-authority", flag.ExitOnError)
	mint := fs.String("mint", "", "Mint address (required)")
	kind := fs.String("kind", "", "Authority kind: MintTokens or FreezeAccount (required)")
	newAuth := fs.String("new", "", "New authority address (required)")
	fs.Parse(args)

	mintKey, err := validate.ParseAddress(*mint)
	if err != nil {
		return err
	}
	newKey, err := validate.ParseAddress(*newAuth)
	if err != nil {
		return err
	}

	res, err := a.svc.Execute(ctx, domain.TokenIntent{
		Operation:     domain.OpSetAuthority,
		Actor:         a.signer.PublicKey(),
		Mint:          mintKey,
		AuthorityKind: domain.AuthorityKind(*kind),
		NewAuthority:  newKey,
	}, nil)
	if err != nil {
		return err
	}

	fmt.Printf("%s authority transferred to %s\nsignature %s\n", *kind, newKey.ToBase58(), res.Signature)
	return nil
}

func (a *app) cmdRevokeAuthority(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("revoke-authority", flag.ExitOnError)
	mint := fs.String("mint", "", "Mint address (required)")
	kind := fs.String("kind", "", "Authority kind: MintTokens or FreezeAccount (required)")
	yes := fs.Bool("yes", false, "Confirm: revocation is irreversible")
	fs.Parse(args)

	if !*yes {
		return fmt.Errorf("revoking the %s authority is irreversible, pass -yes to confirm", *kind)
	}

	mintKey, err := validate.ParseAddress(*mint)
	if err != nil {
		return err
	}

	res, err := a.svc.Execute(ctx, domain.TokenIntent{
		Operation:     domain.OpRevokeAuthority,
		Actor:         a.signer.PublicKey(),
		Mint:          mintKey,
		AuthorityKind: domain.AuthorityKind(*kind),
	}, nil)
	if err != nil {
		return err
	}

	fmt.Printf("%s authority revoked\nsignature %s\n", *kind, res.Signature)
	return nil
}

func (a *app) cmdFreezeThaw(ctx context.Context, args []string, op domain.Operation) error {
	name := "freeze"
	if op == domain.OpThawAccount {
		name = "thaw"
	}
	fs := flag.NewFlagSet(name, flag.ExitOnError)
	mint := fs.String("mint", "", "Mint address (required)")
	owner := fs.String("owner", "", "Holder wallet whose account is affected (required)")
	fs.Parse(args)

	mintKey, err := validate.ParseAddress(*mint)
	if err != nil {
		return err
	}
	ownerKey, err := validate.ParseWalletAddress(*owner)
	if err != nil {
		return err
	}

	res, err := a.svc.Execute(ctx, domain.TokenIntent{
		Operation: op,
		Actor:     a.signer.PublicKey(),
		Mint:      mintKey,
		Recipient: ownerKey,
	}, nil)
	if err != nil {
		return err
	}

	fmt.Printf("%s done for %s\nsignature %s\n", name, ownerKey.ToBase58(), res.Signature)
	return nil
}

func (a *app) cmdMetadata(ctx context.Context, args []string, op domain.Operation) error {
	name := "create-metadata"
	if op == domain.OpUpdateMetadata {
		name = "update-metadata"
	}
	fs := flag.NewFlagSet(name, flag.ExitOnError)
	mint := fs.String("mint", "", "Mint address (required)")
	tokenName := fs.String("name", "", "Token name (required)")
	symbol := fs.String("symbol", "", "Token symbol (required)")
	description := fs.String("description", "", "Token description")
	image := fs.String("image", "", "Path to the token image (required)")
	fs.Parse(args)

	mintKey, err := validate.ParseAddress(*mint)
	if err != nil {
		return err
	}

	bundle, err := a.publish(ctx, *image, *tokenName, *symbol, *description, 0)
	if err != nil {
		return err
	}

	res, err := a.svc.Execute(ctx, domain.TokenIntent{
		Operation: op,
		Actor:     a.signer.PublicKey(),
		Mint:      mintKey,
		Metadata: domain.MetadataFields{
			Name:        *tokenName,
			Symbol:      *symbol,
			Description: *description,
			URI:         bundle.MetadataURI,
		},
	}, &bundle)
	if err != nil {
		return err
	}

	fmt.Printf("metadata written for %s\nsignature %s\n", res.Mint, res.Signature)
	return nil
}

func (a *app) cmdLookup(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("lookup", flag.ExitOnError)
	mint := fs.String("mint", "", "Mint address (required)")
	fs.Parse(args)

	mintKey, err := validate.ParseAddress(*mint)
	if err != nil {
		return err
	}

	lookup, err := a.svc.LookupMetadata(ctx, a.signer.PublicKey().ToBase58(), mintKey.ToBase58())
	if err != nil {
		return err
	}

	fmt.Printf("name:             %s\n", lookup.Name)
	fmt.Printf("symbol:           %s\n", lookup.Symbol)
	fmt.Printf("uri:              %s\n", lookup.URI)
	fmt.Printf("update authority: %s\n", lookup.UpdateAuthority)
	if lookup.Description != "" {
		fmt.Printf("description:      %s\n", lookup.Description)
	}
	if lookup.Image != "" {
		fmt.Printf("image:            %s\n", lookup.Image)
	}
	return nil
}

func (a *app) cmdHoldings(ctx context.Context) error {
	holdings, err := a.inspector.WalletTokens(ctx, a.signer.PublicKey().ToBase58())
	if err != nil {
		return err
	}

	if len(holdings) == 0 {
		fmt.Println("no token accounts")
		return nil
	}
	for _, h := range holdings {
		state := ""
		if h.Frozen {
			state = " (frozen)"
		}
		fmt.Printf("%s  %d%s\n", h.Mint, h.Amount, state)
	}
	return nil
}

func (a *app) cmdTransactions(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("transactions", flag.ExitOnError)
	limit := fs.Int("limit", tokenops.RecentTransactionLimit, "Maximum signatures to list")
	fs.Parse(args)

	sigs, err := a.inspector.RecentTransactions(ctx, a.signer.PublicKey().ToBase58(), *limit)
	if err != nil {
		return err
	}

	for _, s := range sigs {
		status := "ok"
		if s.Err != nil {
			status = "failed"
		}
		fmt.Printf("%s  slot %d  %s\n", s.Signature, s.Slot, status)
	}
	return nil
}

func (a *app) cmdFrozen(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("frozen", flag.ExitOnError)
	mint := fs.String("mint", "", "Mint address (required)")
	fs.Parse(args)

	mintKey, err := validate.ParseAddress(*mint)
	if err != nil {
		return err
	}

	holders, err := a.inspector.FrozenAccounts(ctx, mintKey.ToBase58())
	if err != nil {
		return err
	}

	if len(holders) == 0 {
		fmt.Println("no frozen accounts")
		return nil
	}
	for _, h := range holders {
		fmt.Printf("%s  owner %s  amount %d\n", h.TokenAccount, h.Owner, h.Amount)
	}
	return nil
}

func (a *app) cmdStatus(ctx context.Context) error {
	status, err := a.inspector.Status(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("version:      %s\n", status.Version)
	fmt.Printf("slot:         %d\n", status.Slot)
	fmt.Printf("block height: %d\n", status.BlockHeight)
	return nil
}

// publish pins the image file and metadata document.
func (a *app) publish(ctx context.Context, imagePath, name, symbol, description string, decimals int) (domain.AssetBundle, error) {
	if imagePath == "" {
		return domain.AssetBundle{}, fmt.Errorf("-image is required")
	}
	f, err := os.Open(imagePath)
	if err != nil {
		return domain.AssetBundle{}, fmt.Errorf("open image: %w", err)
	}
	defer f.Close()

	return a.svc.PublishAssets(ctx, filepath.Base(imagePath), f, pinata.TokenAsset{
		Name:        name,
		Symbol:      symbol,
		Description: description,
		Decimals:    decimals,
	})
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

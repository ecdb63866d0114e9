package httpapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/bjeschke/solanahub/internal/domain"
	"github.com/bjeschke/solanahub/internal/pinata"
	"github.com/bjeschke/solanahub/internal/tokenops"
	"github.com/bjeschke/solanahub/internal/validate"
)

// maxImageBytes bounds the uploaded token image.
const maxImageBytes = 5 << 20

// operationResponse is the JSON body of every successful mutation.
type operationResponse struct {
	Operation   string `json:"operation"`
	Mint        string `json:"mint"`
	Signature   string `json:"signature"`
	MetadataURI string `json:"metadata_uri,omitempty"`
	ImageURI    string `json:"image_uri,omitempty"`
}

type recordResponse struct {
	Owner           string `json:"owner"`
	Mint            string `json:"mint"`
	Name            string `json:"name"`
	Symbol          string `json:"symbol"`
	Decimals        int    `json:"decimals"`
	MetadataURI     string `json:"metadata_uri,omitempty"`
	ImageURI        string `json:"image_uri,omitempty"`
	Network         string `json:"network"`
	MintAuthority   string `json:"mint_authority,omitempty"`
	FreezeAuthority string `json:"freeze_authority,omitempty"`
	UpdateAuthority string `json:"update_authority,omitempty"`
	CreatedAt       int64  `json:"created_at"`
}

type lookupResponse struct {
	Mint            string `json:"mint"`
	Name            string `json:"name"`
	Symbol          string `json:"symbol"`
	URI             string `json:"uri"`
	UpdateAuthority string `json:"update_authority,omitempty"`
	Description     string `json:"description,omitempty"`
	Image           string `json:"image,omitempty"`
	LookedUpAt      int64  `json:"looked_up_at"`
}

type attemptResponse struct {
	Operation            string `json:"operation"`
	Mint                 string `json:"mint"`
	Signature            string `json:"signature,omitempty"`
	Outcome              string `json:"outcome"`
	ErrText              string `json:"err_text,omitempty"`
	Blockhash            string `json:"blockhash,omitempty"`
	LastValidBlockHeight uint64 `json:"last_valid_block_height,omitempty"`
	SubmittedAt          int64  `json:"submitted_at"`
	ResolvedAt           int64  `json:"resolved_at,omitempty"`
}

func toRecordResponse(rec *domain.TokenRecord) recordResponse {
	return recordResponse{
		Owner:           rec.Owner,
		Mint:            rec.Mint,
		Name:            rec.Name,
		Symbol:          rec.Symbol,
		Decimals:        rec.Decimals,
		MetadataURI:     rec.MetadataURI,
		ImageURI:        rec.ImageURI,
		Network:         rec.Network,
		MintAuthority:   rec.MintAuthority,
		FreezeAuthority: rec.FreezeAuthority,
		UpdateAuthority: rec.UpdateAuthority,
		CreatedAt:       rec.CreatedAt,
	}
}

func toLookupResponse(l domain.MetadataLookup) lookupResponse {
	return lookupResponse{
		Mint:            l.Mint,
		Name:            l.Name,
		Symbol:          l.Symbol,
		URI:             l.URI,
		UpdateAuthority: l.UpdateAuthority,
		Description:     l.Description,
		Image:           l.Image,
		LookedUpAt:      l.LookedUpAt,
	}
}

func toAttemptResponse(a *domain.SubmissionAttempt) attemptResponse {
	return attemptResponse{
		Operation:            string(a.Operation),
		Mint:                 a.Mint,
		Signature:            a.Signature,
		Outcome:              string(a.Outcome),
		ErrText:              a.ErrText,
		Blockhash:            a.Blockhash,
		LastValidBlockHeight: a.LastValidBlockHeight,
		SubmittedAt:          a.SubmittedAt,
		ResolvedAt:           a.ResolvedAt,
	}
}

// tokenForm is the multipart payload shared by token creation and the
// metadata operations: user fields plus the image to pin.
type tokenForm struct {
	name        string
	symbol      string
	description string
	decimals    int
}

func (s *Server) parseTokenForm(r *http.Request) (tokenForm, error) {
	if err := r.ParseMultipartForm(maxImageBytes); err != nil {
		return tokenForm{}, fmt.Errorf("%w: %v", domain.ErrInvalidIntent, err)
	}

	form := tokenForm{
		name:        r.FormValue("name"),
		symbol:      r.FormValue("symbol"),
		description: r.FormValue("description"),
	}

	if raw := r.FormValue("decimals"); raw != "" {
		d, err := strconv.Atoi(raw)
		if err != nil {
			return tokenForm{}, fmt.Errorf("%w: decimals %q", domain.ErrInvalidIntent, raw)
		}
		form.decimals = d
	}

	return form, nil
}

// publishFromForm pins the uploaded image and the metadata document built
// from the form fields.
func (s *Server) publishFromForm(r *http.Request, form tokenForm) (domain.AssetBundle, error) {
	// An absent or unreadable image is a publish failure: nothing was
	// pinned, so there is no URI to build an intent with.
	file, header, err := r.FormFile("image")
	if err != nil {
		return domain.AssetBundle{}, fmt.Errorf("%w: image file is required", domain.ErrPublish)
	}
	defer file.Close()

	return s.svc.PublishAssets(r.Context(), header.Filename, file, pinata.TokenAsset{
		Name:        form.name,
		Symbol:      form.symbol,
		Description: form.description,
		Decimals:    form.decimals,
	})
}

func (s *Server) handleCreateToken(w http.ResponseWriter, r *http.Request) {
	form, err := s.parseTokenForm(r)
	if err != nil {
		writeError(w, err)
		return
	}

	bundle, err := s.publishFromForm(r, form)
	if err != nil {
		writeError(w, err)
		return
	}

	intent := domain.TokenIntent{
		Operation: domain.OpCreateToken,
		Actor:     s.actor,
		Decimals:  form.decimals,
		Metadata: domain.MetadataFields{
			Name:        form.name,
			Symbol:      form.symbol,
			Description: form.description,
			URI:         bundle.MetadataURI,
		},
	}

	res, err := s.svc.Execute(r.Context(), intent, &bundle)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, operationResponse{
		Operation:   string(res.Operation),
		Mint:        res.Mint,
		Signature:   res.Signature,
		MetadataURI: bundle.MetadataURI,
		ImageURI:    bundle.ImageURI,
	})
}

func (s *Server) handleMintTo(w http.ResponseWriter, r *http.Request) {
	mint, err := mintParam(r)
	if err != nil {
		writeError(w, err)
		return
	}

	var body struct {
		Recipient string `json:"recipient"`
		Amount    string `json:"amount"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, fmt.Errorf("%w: %v", domain.ErrInvalidIntent, err))
		return
	}

	recipient, err := validate.ParseWalletAddress(body.Recipient)
	if err != nil {
		writeError(w, err)
		return
	}

	res, err := s.svc.Execute(r.Context(), domain.TokenIntent{
		Operation: domain.OpMintTo,
		Actor:     s.actor,
		Mint:      mint,
		Recipient: recipient,
		Amount:    body.Amount,
	}, nil)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, operationResponse{
		Operation: string(res.Operation),
		Mint:      res.Mint,
		Signature: res.Signature,
	})
}

func (s *Server) handleSetAuthority(w http.ResponseWriter, r *http.Request) {
	mint, err := mintParam(r)
	if err != nil {
		writeError(w, err)
		return
	}

	var body struct {
		Kind         string `json:"kind"`
		NewAuthority string `json:"new_authority"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, fmt.Errorf("%w: %v", domain.ErrInvalidIntent, err))
		return
	}

	newAuthority, err := validate.ParseAddress(body.NewAuthority)
	if err != nil {
		writeError(w, err)
		return
	}

	res, err := s.svc.Execute(r.Context(), domain.TokenIntent{
		Operation:     domain.OpSetAuthority,
		Actor:         s.actor,
		Mint:          mint,
		AuthorityKind: domain.AuthorityKind(body.Kind),
		NewAuthority:  newAuthority,
	}, nil)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, operationResponse{
		Operation: string(res.Operation),
		Mint:      res.Mint,
		Signature: res.Signature,
	})
}

func (s *Server) handleRevokeAuthority(w http.ResponseWriter, r *http.Request) {
	mint, err := mintParam(r)
	if err != nil {
		writeError(w, err)
		return
	}

	var body struct {
		Kind string `json:"kind"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, fmt.Errorf("%w: %v", domain.ErrInvalidIntent, err))
		return
	}

	res, err := s.svc.Execute(r.Context(), domain.TokenIntent{
		Operation:     domain.OpRevokeAuthority,
		Actor:         s.actor,
		Mint:          mint,
		AuthorityKind: domain.AuthorityKind(body.Kind),
	}, nil)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, operationResponse{
		Operation: string(res.Operation),
		Mint:      res.Mint,
		Signature: res.Signature,
	})
}

func (s *Server) handleFreeze(w http.ResponseWriter, r *http.Request) {
	s.handleFreezeThaw(w, r, domain.OpFreezeAccount)
}

func (s *Server) handleThaw(w http.ResponseWriter, r *http.Request) {
	s.handleFreezeThaw(w, r, domain.OpThawAccount)
}

func (s *Server) handleFreezeThaw(w http.ResponseWriter, r *http.Request, op domain.Operation) {
	mint, err := mintParam(r)
	if err != nil {
		writeError(w, err)
		return
	}

	var body struct {
		Owner string `json:"owner"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, fmt.Errorf("%w: %v", domain.ErrInvalidIntent, err))
		return
	}

	owner, err := validate.ParseWalletAddress(body.Owner)
	if err != nil {
		writeError(w, err)
		return
	}

	res, err := s.svc.Execute(r.Context(), domain.TokenIntent{
		Operation: op,
		Actor:     s.actor,
		Mint:      mint,
		Recipient: owner,
	}, nil)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, operationResponse{
		Operation: string(res.Operation),
		Mint:      res.Mint,
		Signature: res.Signature,
	})
}

func (s *Server) handleCreateMetadata(w http.ResponseWriter, r *http.Request) {
	s.handleMetadataWrite(w, r, domain.OpCreateMetadata)
}

func (s *Server) handleUpdateMetadata(w http.ResponseWriter, r *http.Request) {
	s.handleMetadataWrite(w, r, domain.OpUpdateMetadata)
}

func (s *Server) handleMetadataWrite(w http.ResponseWriter, r *http.Request, op domain.Operation) {
	mint, err := mintParam(r)
	if err != nil {
		writeError(w, err)
		return
	}

	form, err := s.parseTokenForm(r)
	if err != nil {
		writeError(w, err)
		return
	}

	bundle, err := s.publishFromForm(r, form)
	if err != nil {
		writeError(w, err)
		return
	}

	intent := domain.TokenIntent{
		Operation: op,
		Actor:     s.actor,
		Mint:      mint,
		Metadata: domain.MetadataFields{
			Name:        form.name,
			Symbol:      form.symbol,
			Description: form.description,
			URI:         bundle.MetadataURI,
		},
	}

	res, err := s.svc.Execute(r.Context(), intent, &bundle)
	if err != nil {
		writeError(w, err)
		return
	}

	status := http.StatusOK
	if op == domain.OpCreateMetadata {
		status = http.StatusCreated
	}
	writeJSON(w, status, operationResponse{
		Operation:   string(res.Operation),
		Mint:        res.Mint,
		Signature:   res.Signature,
		MetadataURI: bundle.MetadataURI,
		ImageURI:    bundle.ImageURI,
	})
}

func (s *Server) handleLookupMetadata(w http.ResponseWriter, r *http.Request) {
	mint, err := mintParam(r)
	if err != nil {
		writeError(w, err)
		return
	}

	lookup, err := s.svc.LookupMetadata(r.Context(), s.actor.ToBase58(), mint.ToBase58())
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toLookupResponse(lookup))
}

func (s *Server) handleFrozenAccounts(w http.ResponseWriter, r *http.Request) {
	mint, err := mintParam(r)
	if err != nil {
		writeError(w, err)
		return
	}

	holders, err := s.inspector.FrozenAccounts(r.Context(), mint.ToBase58())
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"frozen_accounts": holders})
}

func (s *Server) handleWalletTokens(w http.ResponseWriter, r *http.Request) {
	holdings, err := s.inspector.WalletTokens(r.Context(), s.actor.ToBase58())
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"tokens": holdings})
}

func (s *Server) handleRecentTransactions(w http.ResponseWriter, r *http.Request) {
	limit := parseLimit(r, tokenops.RecentTransactionLimit, tokenops.RecentTransactionLimit)

	sigs, err := s.inspector.RecentTransactions(r.Context(), s.actor.ToBase58(), limit)
	if err != nil {
		writeError(w, err)
		return
	}

	type sigResponse struct {
		Signature string `json:"signature"`
		Slot      int64  `json:"slot"`
		BlockTime *int64 `json:"block_time,omitempty"`
		Failed    bool   `json:"failed"`
	}
	out := make([]sigResponse, 0, len(sigs))
	for _, s := range sigs {
		out = append(out, sigResponse{
			Signature: s.Signature,
			Slot:      s.Slot,
			BlockTime: s.BlockTime,
			Failed:    s.Err != nil,
		})
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"transactions": out})
}

func (s *Server) handleRecords(w http.ResponseWriter, r *http.Request) {
	recs, err := s.svc.Records(r.Context(), s.actor.ToBase58())
	if err != nil {
		writeError(w, err)
		return
	}

	out := make([]recordResponse, 0, len(recs))
	for _, rec := range recs {
		out = append(out, toRecordResponse(rec))
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"records": out})
}

func (s *Server) handleRemoveRecord(w http.ResponseWriter, r *http.Request) {
	mint, err := mintParam(r)
	if err != nil {
		writeError(w, err)
		return
	}

	if err := s.svc.RemoveRecord(r.Context(), s.actor.ToBase58(), mint.ToBase58()); err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleLookupHistory(w http.ResponseWriter, r *http.Request) {
	history, err := s.svc.LookupHistory(r.Context(), s.actor.ToBase58())
	if err != nil {
		writeError(w, err)
		return
	}

	out := make([]lookupResponse, 0, len(history))
	for _, l := range history {
		out = append(out, toLookupResponse(*l))
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"lookups": out})
}

func (s *Server) handleAttempts(w http.ResponseWriter, r *http.Request) {
	limit := parseLimit(r, 20, 100)

	attempts, err := s.svc.Attempts(r.Context(), s.actor.ToBase58(), limit)
	if err != nil {
		writeError(w, err)
		return
	}

	out := make([]attemptResponse, 0, len(attempts))
	for _, a := range attempts {
		out = append(out, toAttemptResponse(a))
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"attempts": out})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	status, err := s.inspector.Status(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, status)
}

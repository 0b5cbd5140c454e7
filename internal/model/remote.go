package model

import (
	"context"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/structpb"
)

// Full method names of the model inference service. Messages are
// google.protobuf.Struct so the Python side needs no generated stubs:
//
//	Embed:    {"texts": [string]}                         -> {"model": string, "embeddings": [[number]]}
//	Classify: {"pairs": [{"premise", "hypothesis"}]}      -> {"model": string, "results": [{"label", "confidence"}]}
const (
	ServiceName    = "okdok.model.v1.ModelService"
	EmbedMethod    = "/" + ServiceName + "/Embed"
	ClassifyMethod = "/" + ServiceName + "/Classify"
)

// RemoteBackend talks to a model server over gRPC. It serves as both the
// Embedder and the NLI classifier.
type RemoteBackend struct {
	conn *grpc.ClientConn
	addr string
}

// DialRemote connects to the model server at addr. The connection is
// established lazily on the first call.
func DialRemote(addr string, opts ...grpc.DialOption) (*RemoteBackend, error) {
	if len(opts) == 0 {
		opts = []grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}
	}
	conn, err := grpc.NewClient(addr, opts...)
	if err != nil {
		return nil, fmt.Errorf("grpc dial %s: %w", addr, err)
	}
	return &RemoteBackend{conn: conn, addr: addr}, nil
}

// Close shuts down the connection.
func (r *RemoteBackend) Close() error {
	return r.conn.Close()
}

func (r *RemoteBackend) ModelID() string { return "remote:" + r.addr }

func (r *RemoteBackend) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	items := make([]any, len(texts))
	for i, t := range texts {
		items[i] = t
	}
	req, err := structpb.NewStruct(map[string]any{"texts": items})
	if err != nil {
		return nil, fmt.Errorf("build embed request: %w", err)
	}

	resp := &structpb.Struct{}
	if err := r.conn.Invoke(ctx, EmbedMethod, req, resp); err != nil {
		return nil, &ErrUnavailable{Backend: r.ModelID(), Err: err}
	}

	rows := resp.GetFields()["embeddings"].GetListValue().GetValues()
	if len(rows) != len(texts) {
		return nil, fmt.Errorf("remote embed: got %d vectors for %d texts", len(rows), len(texts))
	}
	out := make([][]float32, len(rows))
	for i, row := range rows {
		vals := row.GetListValue().GetValues()
		vec := make([]float32, len(vals))
		for j, v := range vals {
			vec[j] = float32(v.GetNumberValue())
		}
		out[i] = vec
	}
	return out, nil
}

func (r *RemoteBackend) Classify(ctx context.Context, pairs []Pair) ([]Judgement, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	items := make([]any, len(pairs))
	for i, p := range pairs {
		items[i] = map[string]any{"premise": p.Premise, "hypothesis": p.Hypothesis}
	}
	req, err := structpb.NewStruct(map[string]any{"pairs": items})
	if err != nil {
		return nil, fmt.Errorf("build classify request: %w", err)
	}

	resp := &structpb.Struct{}
	if err := r.conn.Invoke(ctx, ClassifyMethod, req, resp); err != nil {
		return nil, &ErrUnavailable{Backend: r.ModelID(), Err: err}
	}

	rows := resp.GetFields()["results"].GetListValue().GetValues()
	if len(rows) != len(pairs) {
		return nil, fmt.Errorf("remote classify: got %d results for %d pairs", len(rows), len(pairs))
	}
	out := make([]Judgement, len(rows))
	for i, row := range rows {
		f := row.GetStructValue().GetFields()
		label := Label(f["label"].GetStringValue())
		if !label.Valid() {
			return nil, fmt.Errorf("remote classify: unknown label %q", label)
		}
		out[i] = Judgement{Label: label, Confidence: clamp01(f["confidence"].GetNumberValue())}
	}
	return out, nil
}

func clamp01(x float64) float64 {
	switch {
	case x < 0:
		return 0
	case x > 1:
		return 1
	}
	return x
}

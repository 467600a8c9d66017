package intent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

// DefaultModelName is the default Gemini model used for classification,
// receipt vision and voice transcription.
const DefaultModelName = "gemini-2.5-flash"

// TextClassifier resolves free text into a financial intent.
type TextClassifier interface {
	Classify(ctx context.Context, text string) (Intent, error)
}

// ReceiptAnalyzer extracts a financial intent directly from a photo of a
// receipt, invoice or transfer confirmation.
type ReceiptAnalyzer interface {
	AnalyzeReceipt(ctx context.Context, image []byte, mimeType string) (Intent, error)
}

// AudioTranscriber converts a voice message into pt-BR text.
type AudioTranscriber interface {
	Transcribe(ctx context.Context, audio []byte, mimeType string) (string, error)
}

// GeminiExtractor implements all three extraction interfaces on top of the
// Gemini API. Credentials come from the environment (GEMINI_API_KEY), as
// the genai client resolves them itself.
type GeminiExtractor struct {
	model string
}

// NewGeminiExtractor creates an extractor for the given model, falling
// back to DefaultModelName when empty.
func NewGeminiExtractor(model string) *GeminiExtractor {
	if model == "" {
		model = DefaultModelName
	}
	return &GeminiExtractor{model: model}
}

const classifyPrompt = `Você é o assistente financeiro do Saldin.
Analise a MENSAGEM do usuário e classifique a intenção financeira.

Tipos possíveis:
- "gasto": o usuário gastou ou pagou algo ("Gastei 50 no mercado")
- "receita": o usuário recebeu dinheiro ("Recebi 1200 de salário")
- "consulta_saldo": o usuário quer saber o saldo
- "consulta_extrato": o usuário quer ver as últimas transações
- "incompleto": valor, descrição ou tipo ambíguos ou ausentes

Retorne APENAS um objeto JSON válido, sem comentários e sem Markdown:
{
  "tipo": "gasto" | "receita" | "consulta_saldo" | "consulta_extrato" | "incompleto",
  "valor": number,
  "descricao": string,
  "categoria_sugerida": string,
  "metodo_pagamento": string,
  "status": "ok" | "incompleto"
}

Regras:
- "valor" deve ser o valor numérico da transação. Se não houver, use 0 e status "incompleto".
- "descricao" deve ser curta (ex: "Mercado", "Salário").
- "categoria_sugerida": Alimentação, Transporte, Moradia, Lazer, Saúde, Salário, etc.
- "metodo_pagamento": pix, debito, credito, dinheiro, transferencia, boleto ou "".
- Na dúvida, use status "incompleto". Nunca invente valores.`

const visionPrompt = `Você é o assistente financeiro visual do Saldin.
Analise a IMAGEM (comprovante, nota fiscal, recibo ou foto de produto) e extraia dados financeiros.

REGRAS:
1. Identifique o VALOR TOTAL pago.
2. Identifique o NOME do estabelecimento/pessoa (para a descrição).
3. Identifique a CATEGORIA (Alimentação, Transporte, Moradia, etc).
4. Se for comprovante de transferência, identifique o destinatário.
5. Identifique o MÉTODO DE PAGAMENTO se possível (pix, cartão, dinheiro).

Retorne APENAS um objeto JSON válido, sem Markdown:
{
  "tipo": "gasto" (ou "receita" se for recebimento),
  "valor": number,
  "descricao": string,
  "categoria_sugerida": string,
  "metodo_pagamento": string,
  "status": "ok" | "incompleto"
}`

const transcribePrompt = `Transcreva o áudio a seguir em português do Brasil.
Retorne APENAS o texto transcrito, sem comentários e sem Markdown.`

// Classify sends free text to Gemini and validates the JSON reply.
func (g *GeminiExtractor) Classify(ctx context.Context, text string) (Intent, error) {
	if strings.TrimSpace(text) == "" {
		return Incomplete(), nil
	}

	parts := []*genai.Part{
		{Text: classifyPrompt},
		{Text: "MENSAGEM: " + text},
	}
	obj, err := g.generateJSON(ctx, parts)
	if err != nil {
		return Intent{}, fmt.Errorf("classify text: %w", err)
	}
	return FromModelJSON(obj), nil
}

// AnalyzeReceipt sends the image inline to Gemini and validates the JSON
// reply. Vision output skips the text classifier entirely.
func (g *GeminiExtractor) AnalyzeReceipt(ctx context.Context, image []byte, mimeType string) (Intent, error) {
	if len(image) == 0 {
		return Intent{}, fmt.Errorf("analyze receipt: empty image payload")
	}
	if mimeType == "" {
		mimeType = "image/jpeg"
	}

	parts := []*genai.Part{
		{Text: visionPrompt},
		{InlineData: &genai.Blob{MIMEType: mimeType, Data: image}},
	}
	obj, err := g.generateJSON(ctx, parts)
	if err != nil {
		return Intent{}, fmt.Errorf("analyze receipt: %w", err)
	}
	return FromModelJSON(obj), nil
}

// Transcribe converts a voice note to text. Empty payloads fail fast
// without calling the model.
func (g *GeminiExtractor) Transcribe(ctx context.Context, audio []byte, mimeType string) (string, error) {
	if len(audio) == 0 {
		return "", fmt.Errorf("transcribe: empty audio payload")
	}
	if mimeType == "" {
		mimeType = "audio/ogg"
	}
	// Meta appends codec hints ("audio/ogg; codecs=opus") that the model
	// API rejects.
	if idx := strings.Index(mimeType, ";"); idx != -1 {
		mimeType = strings.TrimSpace(mimeType[:idx])
	}

	parts := []*genai.Part{
		{Text: transcribePrompt},
		{InlineData: &genai.Blob{MIMEType: mimeType, Data: audio}},
	}
	text, err := g.generate(ctx, parts)
	if err != nil {
		return "", fmt.Errorf("transcribe: %w", err)
	}
	return strings.TrimSpace(text), nil
}

func (g *GeminiExtractor) generate(ctx context.Context, parts []*genai.Part) (string, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		HTTPOptions: genai.HTTPOptions{APIVersion: "v1"},
	})
	if err != nil {
		return "", fmt.Errorf("create genai client: %w", err)
	}

	contents := []*genai.Content{{Role: "user", Parts: parts}}
	resp, err := client.Models.GenerateContent(ctx, g.model, contents, nil)
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}

	text := resp.Text()
	if text == "" {
		return "", fmt.Errorf("empty response from model")
	}
	return text, nil
}

func (g *GeminiExtractor) generateJSON(ctx context.Context, parts []*genai.Part) (map[string]interface{}, error) {
	raw, err := g.generate(ctx, parts)
	if err != nil {
		return nil, err
	}

	clean := cleanModelJSON(raw)
	var obj map[string]interface{}
	if err := json.Unmarshal([]byte(clean), &obj); err != nil {
		return nil, fmt.Errorf("unmarshal model JSON: %w\nraw response: %s", err, raw)
	}
	return obj, nil
}

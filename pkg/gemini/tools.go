package gemini

import (
	"google.golang.org/genai"

	"github.com/guestsvalencia/galaxy-live/pkg/session"
)

// defaultSystemPrompt is the receptionist persona. Castilian Spanish,
// professional but warm, with a mandated opening line.
const defaultSystemPrompt = `
IDENTIDAD:
Eres Sandra, recepcionista de GuestsValencia.

DIRECTRIZ DE VOZ Y ACENTO:
1. Habla con acento CASTELLANO (España).
2. Usa vocabulario de España (Coche, Móvil, Ordenador, Vale).
3. Sé profesional pero cercana.

MISION:
Atención al cliente 7 estrellas.

SALUDO INICIAL OBLIGATORIO:
Nada más empezar, di:
"Hola, buenas. Soy Sandra de Guests Valencia. ¿En qué puedo ayudarte hoy?"
`

// Declarations builds the toolset announced to the model. The order
// matches session.KnownToolNames.
func Declarations() []*genai.Tool {
	return []*genai.Tool{{
		FunctionDeclarations: []*genai.FunctionDeclaration{
			{
				Name: string(session.ToolCheckAvailability),
				Parameters: &genai.Schema{
					Type:        genai.TypeObject,
					Description: "Check real-time availability in BridgeData for specific dates.",
					Properties: map[string]*genai.Schema{
						"checkInDate": {Type: genai.TypeString, Description: "YYYY-MM-DD"},
						"nights":      {Type: genai.TypeNumber},
					},
					Required: []string{"checkInDate"},
				},
			},
			{
				Name: string(session.ToolManageAccessControl),
				Parameters: &genai.Schema{
					Type:        genai.TypeObject,
					Description: "Manage IoT locks (Tuya Smart/Smart Life). Use to open portals or generate codes.",
					Properties: map[string]*genai.Schema{
						"action":     {Type: genai.TypeString, Enum: []string{"open_portal", "generate_temp_code"}},
						"propertyId": {Type: genai.TypeString},
					},
					Required: []string{"action"},
				},
			},
			{
				Name: string(session.ToolNotifyStaff),
				Parameters: &genai.Schema{
					Type:        genai.TypeObject,
					Description: "Send internal WhatsApp/SMS via Twilio to cleaning staff (Susana/Paloma).",
					Properties: map[string]*genai.Schema{
						"staffName": {Type: genai.TypeString, Enum: []string{"Susana", "Paloma", "Alex"}},
						"message":   {Type: genai.TypeString},
						"priority":  {Type: genai.TypeString, Enum: []string{"normal", "urgent"}},
					},
					Required: []string{"staffName", "message"},
				},
			},
			{
				Name: string(session.ToolSendWhatsApp),
				Parameters: &genai.Schema{
					Type:        genai.TypeObject,
					Description: "Send official WhatsApp Business message to a guest via Meta API.",
					Properties: map[string]*genai.Schema{
						"phoneNumber": {Type: genai.TypeString},
						"messageBody": {Type: genai.TypeString},
					},
					Required: []string{"phoneNumber", "messageBody"},
				},
			},
			{
				Name: string(session.ToolSetVisualState),
				Parameters: &genai.Schema{
					Type:        genai.TypeObject,
					Description: "Change the avatar video loop based on action.",
					Properties: map[string]*genai.Schema{
						"state": {Type: genai.TypeString, Enum: []string{"LISTENING", "SEARCHING", "TALKING"}},
					},
					Required: []string{"state"},
				},
			},
			{
				Name: string(session.ToolEndCall),
				Parameters: &genai.Schema{
					Type:        genai.TypeObject,
					Description: "Ends the call. Use ONLY when the user has explicitly confirmed they have no more questions and said goodbye.",
					Properties: map[string]*genai.Schema{
						"reason": {Type: genai.TypeString, Description: "Reason for ending the call"},
					},
				},
			},
		},
	}}
}

package common

import (
	"encoding/json"
	"strconv"
	"strings"
)

type BedrockParameter struct {
	Name  string `json:"name"`
	Type  string `json:"type"`
	Value string `json:"value"`
}

// BedrockEvent is the action group invocation sent by a Bedrock agent.
type BedrockEvent struct {
	ActionGroup string             `json:"actionGroup"`
	ApiPath     string             `json:"apiPath"`
	HTTPMethod  string             `json:"httpMethod"`
	Function    string             `json:"function"`
	Parameters  []BedrockParameter `json:"parameters"`
}

type BedrockFunctionResponse struct {
	ResponseBody interface{} `json:"responseBody"`
}

type BedrockResponseContainer struct {
	ActionGroup      string                  `json:"actionGroup"`
	Function         string                  `json:"function"`
	FunctionResponse BedrockFunctionResponse `json:"functionResponse"`
}

type BedrockOutput struct {
	MessageVersion string                   `json:"messageVersion"`
	Response       BedrockResponseContainer `json:"response"`
}

// ParseBedrockEvent reports whether raw is a Bedrock agent invocation.
func ParseBedrockEvent(raw []byte) (*BedrockEvent, bool) {
	var event BedrockEvent
	if err := json.Unmarshal(raw, &event); err != nil || event.ActionGroup == "" {
		return nil, false
	}
	return &event, true
}

func (e *BedrockEvent) GetParameter(name string) string {
	for _, p := range e.Parameters {
		if strings.EqualFold(p.Name, name) {
			return p.Value
		}
	}
	return ""
}

// GetInt returns the named parameter as an int, or 0 when absent or not a number.
func (e *BedrockEvent) GetInt(name string) int {
	n, err := strconv.Atoi(strings.TrimSpace(e.GetParameter(name)))
	if err != nil {
		return 0
	}
	return n
}

func NewBedrockResponse(actionGroup, function string, results interface{}) BedrockOutput {
	resBody, _ := json.Marshal(results)
	return BedrockOutput{
		MessageVersion: "1.0",
		Response: BedrockResponseContainer{
			ActionGroup: actionGroup,
			Function:    function,
			FunctionResponse: BedrockFunctionResponse{
				ResponseBody: map[string]interface{}{
					"TEXT": map[string]string{
						"body": string(resBody),
					},
				},
			},
		},
	}
}

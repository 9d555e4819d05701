package event

// variant bundles the validator and enricher of one update type.
type variant struct {
	validate func(Envelope, *reportBuilder)
	enrich   func(Envelope, Identity, *Context)
}

// variants is the dispatch table. Supporting a new update type means adding
// one entry here plus its two functions.
var variants = map[UpdateType]variant{
	TypeMessageCreated:     {validateMessageCreated, enrichMessageCreated},
	TypeMessageChatCreated: {validateMessageChatCreated, enrichMessageChatCreated},
	TypeMessageEdited:      {validateMessageEdited, enrichMessageEdited},
	TypeMessageRemoved:     {validateMessageRemoved, enrichMessageRemoved},
	TypeMessageCallback:    {validateMessageCallback, enrichMessageCallback},
	TypeBotAdded:           {validateMembership, enrichBotAdded},
	TypeBotRemoved:         {validateMembership, enrichBotRemoved},
	TypeUserAdded:          {validateMembership, enrichUserAdded},
	TypeUserRemoved:        {validateMembership, enrichUserRemoved},
	TypeChatTitleChanged:   {validateChatTitleChanged, enrichChatTitleChanged},
	TypeBotStarted:         {validateBotStarted, enrichBotStarted},
}

var unknownVariant = variant{validateUnknown, enrichUnknown}

func variantFor(t UpdateType) variant {
	if v, ok := variants[t]; ok {
		return v
	}
	return unknownVariant
}

package nlp

import "strings"

// Coarse universal part-of-speech tags
const (
	POSVerb  = "VERB"
	POSAux   = "AUX"
	POSNoun  = "NOUN"
	POSPropN = "PROPN"
	POSAdj   = "ADJ"
	POSAdv   = "ADV"
	POSPron  = "PRON"
	POSDet   = "DET"
	POSAdp   = "ADP"
	POSConj  = "CCONJ"
	POSNum   = "NUM"
	POSPart  = "PART"
	POSIntj  = "INTJ"
	POSSym   = "SYM"
	POSPunct = "PUNCT"
	POSOther = "X"
)

var pennToUniversal = map[string]string{
	"VB": POSVerb, "VBD": POSVerb, "VBG": POSVerb, "VBN": POSVerb, "VBP": POSVerb, "VBZ": POSVerb,
	"MD": POSAux,
	"NN": POSNoun, "NNS": POSNoun,
	"NNP": POSPropN, "NNPS": POSPropN,
	"JJ": POSAdj, "JJR": POSAdj, "JJS": POSAdj,
	"RB": POSAdv, "RBR": POSAdv, "RBS": POSAdv, "WRB": POSAdv,
	"PRP": POSPron, "PRP$": POSPron, "WP": POSPron, "WP$": POSPron, "EX": POSPron,
	"DT": POSDet, "PDT": POSDet, "WDT": POSDet,
	"IN": POSAdp,
	"CC": POSConj,
	"CD": POSNum,
	"RP": POSPart, "TO": POSPart, "POS": POSPart,
	"UH": POSIntj,
	"SYM": POSSym, "$": POSSym, "#": POSSym,
	"FW": POSOther, "LS": POSOther,
}

// CoarsePOS maps a Penn Treebank tag to a universal part of speech.
// Unknown non-empty tags made of punctuation map to PUNCT, everything else to X.
// An empty tag stays empty.
func CoarsePOS(tag string) string {
	if tag == "" {
		return ""
	}
	if pos, ok := pennToUniversal[tag]; ok {
		return pos
	}
	if strings.IndexFunc(tag, isTagLetter) < 0 || strings.HasPrefix(tag, "-") {
		return POSPunct
	}
	return POSOther
}

func isTagLetter(r rune) bool {
	return r >= 'A' && r <= 'Z'
}

// IsVerbTag reports whether a Penn tag is a verb form
func IsVerbTag(tag string) bool {
	return strings.HasPrefix(tag, "VB")
}

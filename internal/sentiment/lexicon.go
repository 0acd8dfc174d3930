package sentiment

// valenceLexicon maps words to sentiment valence, roughly on the VADER
// [-4, 4] scale. Trading slang is included because the inputs are
// finance-subreddit posts.
var valenceLexicon = map[string]float64{
	// General positive
	"good": 1.9, "great": 3.1, "excellent": 3.2, "amazing": 2.8,
	"awesome": 3.1, "love": 3.2, "like": 1.5, "best": 3.2,
	"happy": 2.7, "win": 2.8, "winning": 2.8, "winner": 2.8,
	"strong": 2.3, "solid": 2.2, "confident": 2.2, "beat": 1.8,
	"optimistic": 2.4, "success": 2.7, "profitable": 2.6, "profit": 2.3,
	"gain": 2.2, "gains": 2.2, "up": 1.2, "rally": 2.0, "surge": 2.2,
	"soar": 2.4, "soaring": 2.4, "growth": 1.9, "growing": 1.9,

	// Trading-slang positive
	"bullish": 2.9, "moon": 2.6, "mooning": 2.6, "rocket": 2.4,
	"undervalued": 2.0, "cheap": 1.4, "breakout": 1.8, "tendies": 2.3,
	"hodl": 1.6, "yolo": 1.0, "calls": 1.2, "long": 1.3,

	// General negative
	"bad": -2.5, "terrible": -3.1, "awful": -3.0, "hate": -2.7,
	"worst": -3.1, "loss": -2.3, "losses": -2.3, "lose": -2.4,
	"losing": -2.4, "weak": -1.9, "fear": -2.2, "afraid": -2.0,
	"risky": -1.5, "risk": -1.1, "down": -1.2, "drop": -1.8,
	"dropping": -1.8, "fall": -1.7, "falling": -1.7, "decline": -1.8,
	"miss": -1.6, "missed": -1.6, "fail": -2.5, "failed": -2.5,
	"fraud": -3.2, "lawsuit": -2.1, "bankrupt": -3.3, "bankruptcy": -3.3,

	// Trading-slang negative
	"bearish": -2.9, "crash": -3.0, "dump": -2.5, "dumping": -2.5,
	"tank": -2.5, "tanking": -2.5, "overvalued": -2.0, "bubble": -1.9,
	"bagholder": -2.2, "bagholders": -2.2, "puts": -1.2, "short": -1.3,
	"rug": -2.4, "drill": -1.8, "bleed": -2.0, "bleeding": -2.0,
}

// negatorWords flip the valence of the following sentiment word.
var negatorWords = map[string]bool{
	"not": true, "no": true, "never": true, "neither": true,
	"nobody": true, "none": true, "dont": true, "don't": true,
	"cant": true, "can't": true, "wont": true, "won't": true,
	"isnt": true, "isn't": true, "wasnt": true, "wasn't": true,
	"without": true, "barely": true, "hardly": true,
}

// boosterWords scale the valence of the following sentiment word.
var boosterWords = map[string]float64{
	"very": 1.3, "extremely": 1.5, "absolutely": 1.4, "really": 1.25,
	"super": 1.3, "so": 1.2, "incredibly": 1.5, "totally": 1.3,
	"slightly": 0.7, "somewhat": 0.75, "kinda": 0.8, "kind": 0.9,
	"little": 0.8, "marginally": 0.6,
}

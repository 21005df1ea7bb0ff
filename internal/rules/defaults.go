package rules

// defaultBannedWords is the built-in lexicon used when no banned words file is
// available. The corpus this engine was built for is mixed English and Bengali,
// so the defaults cover English, Bengali script, and romanized Bengali.
func defaultBannedWords() []string {
	return []string{
		// English
		"fuck", "shit", "asshole", "bastard", "bitch", "cunt", "pussy", "dick", "cock",
		"whore", "slut", "nigger", "nigga", "retard", "faggot", "dyke", "tranny",
		"idiot", "moron", "stupid", "dumbass", "motherfucker", "bullshit", "damn",
		"suck", "sucks", "sucking", "blowjob", "handjob", "masturbate",
		"porn", "porno", "xxx", "sex", "sexual", "rape", "rapist", "pedophile",
		"scam", "scamming", "fraud", "hack", "hacking", "virus", "malware",
		"kill", "killing", "murder", "suicide", "bomb", "terrorist", "attack",

		// Bengali script
		"গালি", "অপমান", "অশ্লীল", "খারাপ", "মন্দ", "হুট", "হুঙ্কার",
		"শালা", "শালী", "হরামী", "হারামি", "জাহান্নামী", "কুত্তা", "কুত্তির",
		"শুয়োর", "বেজন্মা", "হাপা", "হাবা", "পাগল", "উল্টা", "নষ্ট",
		"বদমাইশ", "গুণ্ডা", "অভদ্র", "অসভ্য", "অপবাদ", "নিন্দা",
		"গালাগালি", "ঝগড়া", "মারামারি", "হানাহানি", "ধর্ষণ", "বলপ্রয়োগ",

		// Romanized Bengali
		"sala", "sali", "harami", "kutta", "kuttar", "kuttir", "hoga",
		"pagol", "ulta", "beshya", "randi", "khanki", "magi", "faltu",
	}
}

// defaultPatterns is the built-in suspicious pattern list used when no pattern
// file is available. Expressions are compiled verbatim, so case sensitivity is
// controlled per pattern; most carry an explicit (?i).
func defaultPatterns() []PatternEntry {
	return []PatternEntry{
		// URLs and links
		{Name: "url_detected", Regex: `(?i)https?://(?:[a-zA-Z0-9$\-_@.&+!*(),]|%[0-9a-fA-F]{2})+`},
		{Name: "website_detected", Regex: `(?i)(?:www\.)?[a-zA-Z0-9-]+\.[a-zA-Z]{2,}(?:\.[a-zA-Z]{2,})?`},
		{Name: "telegram_link", Regex: `(?i)t\.me/\w+`},

		// Personal information
		{Name: "phone_number", Regex: `\+?(?:88)?01[3-9]\d{8}`},
		{Name: "phone_format", Regex: `\d{4}[-.\s]?\d{4}[-.\s]?\d{4}`},
		{Name: "email_address", Regex: `\S+@\S+\.\S+`},
		{Name: "id_number", Regex: `\b\d{10,17}\b`},
		{Name: "us_phone", Regex: `\b\d{3}[-.\s]?\d{3}[-.\s]?\d{4}\b`},

		// Spam
		{Name: "emoji_spam", Regex: `[\x{1F300}-\x{1F5FF}\x{1F600}-\x{1F64F}]{10,}`},
		{Name: "excessive_caps", Regex: `(?:\b[A-Z]{2,}\b[\s!?.,]*){3,}|[A-Z\x{0980}-\x{09FF}]{15,}`},
		{Name: "multiple_mentions", Regex: `@\w+\s*@\w+\s*@\w+`},
		{Name: "excessive_special_chars", Regex: `[\W_]{20,}`},
		{Name: "spam_keywords", Regex: `(?i)\b(?:win|won|free|gift|prize|money|cash|reward)\b.*\b(?:click|link|call|visit)\b`},

		// Threats
		{Name: "threat_detected", Regex: `(?i)\b(?:kill|murder|attack|beat|hit|hurt|harm|destroy)\b.*\b(?:you|u|your|urself)\b`},
		{Name: "weapon_mention", Regex: `(?i)\b(?:bomb|explode|shoot|gun|knife|weapon)\b`},
		{Name: "self_harm", Regex: `(?i)\b(?:die|death|dead|suicide|hang|jump)\b`},

		// Scams
		{Name: "scam_alert", Regex: `(?i)\b(?:bitcoin|crypto|investment|profit|earn|money|rich)\b.*\b(?:fast|quick|easy|guaranteed)\b`},
		{Name: "phishing_attempt", Regex: `(?i)\b(?:password|login|account|bank|card|pin)\b.*\b(?:send|give|share|provide)\b`},

		// Inappropriate content
		{Name: "adult_content", Regex: `(?i)\b(?:nude|naked|porn|sex|xxx|adult)\b`},
		{Name: "drug_mention", Regex: `(?i)\b(?:drug|weed|cocaine|heroin|alcohol|drunk)\b`},

		// Hate speech
		{Name: "hate_speech", Regex: `(?i)\b(?:hate|racist|sexist|homophobic|transphobic)\b`},
		{Name: "religious_hate", Regex: `(?i)\b(?:muslim|hindu|christian|buddhist|jew)\b.*\b(?:bad|evil|wrong|stupid)\b`},
	}
}

// defaultAllowedDomains lists domains exempt from unsafe URL treatment.
func defaultAllowedDomains() []string {
	return []string{
		"youtube.com",
		"youtu.be",
		"google.com",
		"wikipedia.org",
		"github.com",
		"t.me",
	}
}

// shortenerDomains lists known URL shorteners and redirectors. A URL whose
// domain is neither allowed nor a shortener is left alone; shorteners hide
// their destination, which is what makes them unsafe here.
func shortenerDomains() []string {
	return []string{
		"bit.ly", "tinyurl", "shorte.st", "adf.ly", "bc.vc",
		"goo.gl", "ow.ly", "is.gd", "cutt.ly", "rb.gy",
	}
}

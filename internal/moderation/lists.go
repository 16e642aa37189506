package moderation

var defaultProfanity = []string{
	"ass",
	"asshole",
	"bastard",
	"bitch",
	"bollocks",
	"crap",
	"damn",
	"dick",
	"douche",
	"fuck",
	"fucking",
	"idiot",
	"jerk",
	"moron",
	"piss",
	"prick",
	"shit",
	"shitty",
	"slut",
	"stupid",
	"suck",
	"sucks",
	"twat",
	"wanker",
}

var defaultSpamPhrases = []string{
	"buy now",
	"click here",
	"free money",
	"make money fast",
	"limited time offer",
	"work from home and earn",
	"crypto giveaway",
	"double your bitcoin",
	"follow for follow",
	"check my profile",
}

var defaultDisposableDomains = []string{
	"10minutemail.com",
	"discard.email",
	"dispostable.com",
	"fakeinbox.com",
	"getnada.com",
	"guerrillamail.com",
	"maildrop.cc",
	"mailinator.com",
	"mintemail.com",
	"mohmal.com",
	"sharklasers.com",
	"spamgourmet.com",
	"temp-mail.org",
	"tempmail.com",
	"throwawaymail.com",
	"trashmail.com",
	"yopmail.com",
}

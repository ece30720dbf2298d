package querygen

import "strings"

// celebrities covered in German media, December 2017.
var celebrities = []string{
	"Anna Angelina Wolfers", "Zooey Deschanel", "Claudia Schiffer", "Nela Lee", "Kirsten Dunst", "Jennifer Aniston", "Blake Lively", "Emma Watson", "Palina Rojinski", "Leighton Meester",
	"Luisa Hartema", "Barbara Meier", "Penelope Cruz", "Mila Kunis", "Reese Witherspoon", "Toni Garrn", "Rachel Bilson", "Nina Dobrev", "Natalie Portman", "Lena Gercke",
	"Ashley Greene", "Jennifer Lawrence", "Julia Stegner", "Beyoncé Knowles", "Selena Marie Gomez", "Keira Knightley", "Anne Hathaway", "Cameron Diaz", "Diane Kruger", "Eva Longoria",
	"Lauren Conrad", "Hilary Duff", "AnnaSophia Robb", "Angelina Jolie", "Charlize Theron", "Jessica Biel", "Eva Mendes", "Amber Heard", "Liv Tyler", "Lea Michele",
	"Olivia Palermo", "Ashley Olsen", "Gisele Bündchen", "Mary-Kate Olsen", "Katy Perry", "Alyssa Milano", "Marion Cotillard", "Sara Nuru", "Lily Collins", "Emma Roberts",
	"Kate Hudson", "Julia Stegner", "Elizabeth Chase Olsen", "Evan Rachel Wood", "Paris Hilton", "Christina Aguilera", "Jessica Karen Szohr", "Dita Von Teese", "Camilla Belle", "Aimee Duffy",
	"Taylor Momsen", "Kristen Stewart", "Britney Spears", "Michelle Trachtenberg", "Heidi Klum", "Gwyneth Paltrow", "Avril Lavigne", "Milla Jovovich", "Maggie Gyllenhaal", "Alexa Chung",
	"Kate Bosworth", "Mischa Barton", "Juno Temple", "Pixie Lott", "Poppy Delevigne", "Gillian Zinser", "Clemence Poesy", "Gwen Stefani", "Gemma Ward", "Jessica Schwarz",
	"Jessica Simpson", "Lily Donaldson", "Julia Restoin Roitfeld", "Johanna Klum", "Hilary Swank", "Margherita Missoni", "Franziska Knuppe", "Kate Moss", "Mélanie Laurent", "Rooney Mara",
	"Mandy Bork", "Michelle Williams", "Carey Mulligan", "Daisy Lowe", "Jessica Joffe", "Hadnet Tesfai", "Agyness Deyn", "Lydia Hearst", "Naomi Campbell", "Florence Welch",
	"Dave Gahan", "Johannes Strate", "Bill Kaulitz", "Patrick Dempsey", "Florian David Fitz", "Jared Leto", "Johnny Depp", "Ryan Gosling", "George Clooney", "Brad Pitt",
	"Leonardo DiCaprio", "Ian Somerhalder", "Channing Tatum", "Bradley Cooper", "Jake Gyllenhaal", "Jeremy Lee Renner", "Gerard Butler", "Eric Dane", "Chace Crawford", "Zac Efron",
	"Justin Bieber", "Orlando Bloom", "Mats Hummels", "Jesse Williams", "Ryan Reynolds", "Ed Westwick", "Douglas Booth", "Johannes Huebl", "Ben Barnes", "Alex Pettyfer",
	"James Franco", "Justin Timberlake", "Chris Hemsworth", "Adam Levine", "Taylor Lautner", "Ashton Kutcher", "Roman Lob", "Garrett Hedlund", "Ken Duken", "Cro",
	"Joe Manganiello", "Alexander Fehling", "Jan Delay", "Robert Pattinson", "Tom Schilling", "Penn Badgley", "Joseph Gordon-Levitt", "Brandon Flowers", "Alexander Skarsgard", "Andrew Garfield",
	"Michael Fassbender", "Taylor Kitsch", "Jason Segel", "Hugh Dancy", "Mario Gomez", "Jon Kortajarena", "Bruno Mars", "Roger Federer", "Hugh Laurie", "Tom Hardy",
	"Markus Lanz", "Kellan Lutz", "Harry von Wales", "Jan Böhmermann", "Sam Riley", "Xavier Naidoo", "James Tupper", "Caleb Followill", "Aaron Taylor-Johnson", "Jamie Bell",
	"Alex Watson", "Jesse Eisenberg", "Daniel Radcliffe", "Mark Ronson", "Jason Schwartzman", "Vladimir Restoin Roitfeld", "Elyas M'Barek", "Klaas Heufer-Umlauf", "Joko Winterscheidt", "Matthias Schweighöfer",
}

// Celebrities returns a copy of the static name list.
func Celebrities() []string {
	out := make([]string, len(celebrities))
	for i, c := range celebrities {
		out[i] = strings.TrimSpace(c)
	}
	return out
}

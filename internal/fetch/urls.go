package fetch

import (
	"net/url"
)

// GunBrokerSoldURL is the completed-listings search for an item name.
func GunBrokerSoldURL(itemName string) string {
	return "https://www.gunbroker.com/All/search?Keywords=" + url.QueryEscape(itemName) + "&Completed=true"
}

// EBaySoldURL is the sold-listings search for an item name.
func EBaySoldURL(itemName string) string {
	return "https://www.ebay.com/sch/i.html?_nkw=" + url.QueryEscape(itemName) + "&LH_Sold=1&LH_Complete=1"
}
